package model

// State is a pipeline state.
type State string

const (
	StateResolving           State = "resolving"
	StateFetching            State = "fetching"
	StateStaged              State = "staged"
	StateExtracting          State = "extracting"
	StateClassifying         State = "classifying"
	StateInstalling          State = "installing"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
	StateNoDownloadAvailable State = "no_download_available"
	StateUnsupportedFormat   State = "unsupported_format"
	StateUnrecognizedLayout  State = "unrecognized_layout"
)

// IsTerminal reports whether no further transition can happen from s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed,
		StateNoDownloadAvailable, StateUnsupportedFormat, StateUnrecognizedLayout:
		return true
	default:
		return false
	}
}

// FailureKind classifies a Failed run.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureNetwork    FailureKind = "network"
	FailureFileSystem FailureKind = "filesystem"
	FailureParse      FailureKind = "parse"
	FailureCanceled   FailureKind = "canceled"
)

// TargetKind selects one of the two installation roots.
type TargetKind string

const (
	TargetMods      TargetKind = "mods"
	TargetOverrides TargetKind = "overrides"
)

// InstallTarget is a classified destination.
type InstallTarget struct {
	Kind   TargetKind
	Source string // Marker parent directory in scratch space
	Path   string // Root joined with the source directory's name
}

// InstallRoots are the two fixed destination roots of a game installation.
type InstallRoots struct {
	Mods      string
	Overrides string
}

// InstallResult is the outcome of one pipeline run. Err is set only when
// State is StateFailed; FailedIn records the state the failure occurred in.
type InstallResult struct {
	ModID       ModID
	State       State
	FailedIn    State
	Failure     FailureKind
	Err         error
	URL         string
	Target      *InstallTarget
	InstalledTo string
}

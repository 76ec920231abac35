package model

// Payday2AppID is PAYDAY 2's Steam application id.
const Payday2AppID uint32 = 218620

// InstalledGame is a game found in a local Steam library.
type InstalledGame struct {
	AppID      uint32 `json:"app_id"`
	Name       string `json:"name"`
	InstallDir string `json:"install_dir"`
}

package model

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

// ModID identifies a catalog entry. Valid ids are positive.
type ModID uint32

// ParseModID parses a decimal mod id and rejects zero.
func ParseModID(s string) (ModID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid mod id", goerr.V("value", s))
	}
	if v == 0 {
		return 0, goerr.New("mod id must be positive", goerr.V("value", s))
	}
	return ModID(v), nil
}

func (x ModID) String() string {
	return strconv.FormatUint(uint64(x), 10)
}

// Mod is a catalog entry summary as returned by a search.
type Mod struct {
	ID           ModID  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Downloads    uint32 `json:"downloads"`
	Author       string `json:"author"`
	HasDownload  bool   `json:"has_download"`
	DownloadType string `json:"download_type,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// PageMeta is the catalog's pagination metadata.
type PageMeta struct {
	CurrentPage uint32 `json:"current_page"`
	From        uint32 `json:"from"`
	To          uint32 `json:"to"`
	LastPage    uint32 `json:"last_page"`
	PerPage     uint32 `json:"per_page"`
	Total       uint32 `json:"total"`
}

// ModPage is one page of search results.
type ModPage struct {
	Mods []Mod    `json:"mods"`
	Meta PageMeta `json:"meta"`
}

// SearchQuery holds catalog search parameters
type SearchQuery struct {
	Query string
	Limit int
	Page  int
}

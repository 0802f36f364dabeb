package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// vendorKeywords route a file by the first keyword found in its name.
var vendorKeywords = []struct {
	keyword string
	source  catalog.Source
}{
	{"pristine", catalog.SourcePristine},
	{"signature", catalog.SourceSignatureSports},
	{"great", catalog.SourceGreatSports},
	{"radtke", catalog.SourceRadtke},
	{"rsa", catalog.SourceRSA},
	{"fanatics", catalog.SourceFanatics},
}

// RouteVendor picks the price source for a vendor file from its name.
func RouteVendor(path string) (catalog.Source, error) {
	name := strings.ToLower(filepath.Base(path))
	for _, v := range vendorKeywords {
		if strings.Contains(name, v.keyword) {
			return v.source, nil
		}
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnknownVendor, filepath.Base(path))
}

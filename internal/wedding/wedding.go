// Package wedding describes the invitations a QR code can point at.
package wedding

import (
	"strconv"
	"strings"
)

// Wedding is the subset of invitation data the QR tooling needs.
type Wedding struct {
	ID          int64  `json:"id" yaml:"id"`
	ShareableID string `json:"shareable_id,omitempty" yaml:"shareable_id"`
	CoupleName1 string `json:"couple_name_1" yaml:"couple_name_1"`
	CoupleName2 string `json:"couple_name_2" yaml:"couple_name_2"`
	WeddingDate string `json:"wedding_date,omitempty" yaml:"wedding_date"`
	VenueName   string `json:"venue_name,omitempty" yaml:"venue_name"`
}

// TargetURL is the link encoded into the QR code. Shareable ids win over
// numeric ids.
func (w Wedding) TargetURL(origin string) string {
	origin = strings.TrimRight(origin, "/")
	if w.ShareableID != "" {
		return origin + "/share/" + w.ShareableID
	}
	return origin + "/wedding/" + strconv.FormatInt(w.ID, 10)
}

// DownloadFilename names the PNG offered for download.
func (w Wedding) DownloadFilename() string {
	return DownloadFilename(w.CoupleName1, w.CoupleName2)
}

// DownloadFilename builds "wedding-qr-code-{name1}-{name2}.png" with the
// fallbacks "wedding" and "card" for missing names.
func DownloadFilename(name1, name2 string) string {
	if name1 == "" {
		name1 = "wedding"
	}
	if name2 == "" {
		name2 = "card"
	}
	return "wedding-qr-code-" + name1 + "-" + name2 + ".png"
}

// Key is the identifier used in URLs: the shareable id when present,
// otherwise the numeric id.
func (w Wedding) Key() string {
	if w.ShareableID != "" {
		return w.ShareableID
	}
	return strconv.FormatInt(w.ID, 10)
}

package project

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

const identityPrefixLen = 2048

// IdentityID derives a stable lock id from a consented person name and the
// head of their image data URL.
func IdentityID(personName, dataURL string) string {
	head := dataURL
	if len(head) > identityPrefixLen {
		head = head[:identityPrefixLen]
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(personName)) + "|" + head))
	return hex.EncodeToString(sum[:])[:20]
}

// NewIdentityLock builds a consent-checked lock for the given avatar.
func NewIdentityLock(personName string, avatar models.UploadedAsset, now time.Time) models.IdentityLock {
	return models.IdentityLock{
		PersonName:     strings.TrimSpace(personName),
		IdentityID:     IdentityID(personName, avatar.DataURL),
		ConsentChecked: true,
		CreatedAt:      now.UTC().Format(time.RFC3339),
	}
}

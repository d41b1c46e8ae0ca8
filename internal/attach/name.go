package attach

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/mehdiakbarifar/chavosh/internal/util"
)

const maxBaseLen = 60

// SafeName derives a storage name from a client-supplied filename: the
// extension-stripped base keeps only letters, digits, hyphen, underscore
// and space, is capped at 60 runes and falls back to "file" when nothing
// survives; a time-plus-random suffix guarantees uniqueness even for
// concurrent uploads of the same name, and the original extension is
// re-attached.
func SafeName(originalName string) string {
	ext := safeExt(path.Ext(originalName))
	base := strings.TrimSuffix(path.Base(originalName), path.Ext(originalName))

	kept := make([]rune, 0, len(base))
	for _, ch := range base {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '-' || ch == '_' || ch == ' ' {
			kept = append(kept, ch)
		}
	}
	if len(kept) > maxBaseLen {
		kept = kept[:maxBaseLen]
	}
	safeBase := string(kept)
	if safeBase == "" {
		safeBase = "file"
	}

	unique := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), util.Suffix(4))
	return safeBase + "-" + unique + ext
}

// safeExt keeps the leading dot plus letters and digits only, so a hostile
// extension can never smuggle separators into the storage name.
func safeExt(ext string) string {
	if ext == "" {
		return ""
	}
	kept := make([]rune, 0, len(ext))
	for _, ch := range strings.TrimPrefix(ext, ".") {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			kept = append(kept, ch)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return "." + string(kept)
}

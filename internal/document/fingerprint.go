package document

import (
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// Fingerprint identifies the document's own metadata and body. It ignores
// inherited keys so it only changes when the source file does.
func (d *Document) Fingerprint() (string, error) {
	fields := d.metadata.Copy()
	fields.Delete(mdfp.FingerprintField)

	fm := ""
	if fields.Len() > 0 {
		serialized, err := frontmatter.SerializeYAML(fields)
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, d.body), nil
}

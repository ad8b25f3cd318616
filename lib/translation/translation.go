package translation

import (
	"github.com/leonelquinteros/gotext"
)

// Configure points gotext at the locale catalogs. Missing catalogs are
// fine, Translate then falls back to the message id.
func Configure(localesDir, lang string) {
	gotext.Configure(localesDir, lang, "default")
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}

package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator divides a callback namespace from its key, as in "view:AI".
const Separator = ":"

// Split returns the namespace and key of raw callback data. Data without a
// separator is a bare namespace with an empty key.
func Split(data string) (namespace, key string) {
	data = strings.TrimSpace(data)
	ns, k, _ := strings.Cut(data, Separator)
	return ns, k
}

// Join builds callback data from a namespace and an optional key.
func Join(namespace, key string) string {
	if key == "" {
		return namespace
	}
	return namespace + Separator + key
}

// Data returns the raw callback data of the current update, if any.
func Data(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + "|" + cb.Data
	}
	return cb.Data
}

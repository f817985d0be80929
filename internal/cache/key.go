package cache

import "strings"

// Key identifies a cache entry: an API path (query included) and the
// credential the request is issued with. The zero Key is the null key and
// never triggers a fetch.
type Key struct {
	Path       string
	Credential string
}

// NewKey returns the key for path under credential.
// A missing credential or path yields the null key.
func NewKey(path, credential string) Key {
	if path == "" || credential == "" {
		return Key{}
	}
	return Key{Path: path, Credential: credential}
}

// IsZero reports whether k is the null key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// String renders the key without leaking the credential.
func (k Key) String() string {
	if k.IsZero() {
		return "<null>"
	}
	return k.Path + " [" + redact(k.Credential) + "]"
}

func (k Key) id() string {
	return k.Path + "\x00" + k.Credential
}

func (k Key) hasPrefix(credential, prefix string) bool {
	return k.Credential == credential && strings.HasPrefix(k.Path, prefix)
}

func redact(credential string) string {
	if len(credential) <= 4 {
		return "***"
	}
	return credential[:2] + "***"
}

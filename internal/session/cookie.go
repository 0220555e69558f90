package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "ingressos-checkout"
	idKey      = "checkout_session_id"
)

// CookieBinder ties a browser to its checkout session through a signed
// cookie.
type CookieBinder struct {
	store *sessions.CookieStore
}

func NewCookieBinder(secret []byte, secure bool) *CookieBinder {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieBinder{store: store}
}

func (b *CookieBinder) Bind(w http.ResponseWriter, r *http.Request, id string) error {
	// A cookie that fails to decode is replaced.
	sess, _ := b.store.Get(r, cookieName)
	sess.Values[idKey] = id
	return sess.Save(r, w)
}

// SessionID returns the bound checkout id, or "" when the cookie is missing
// or was not signed by us.
func (b *CookieBinder) SessionID(r *http.Request) string {
	sess, err := b.store.Get(r, cookieName)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[idKey].(string)
	return id
}

package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/docwatch/internal/auth"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/repository"
)

type stubVerifier struct {
	ident *auth.Identity
	err   error
}

func (v stubVerifier) Verify(context.Context, string) (*auth.Identity, error) {
	return v.ident, v.err
}

func newAuthService(f *fixture, verifiers map[model.AuthProvider]auth.IdentityVerifier) *AuthService {
	return NewAuthService(
		repository.NewGormUserRepository(f.db),
		auth.NewTokens("test-secret", time.Hour, f.clock),
		verifiers,
		nil,
	)
}

func signup(email string) SignupInput {
	return SignupInput{FullName: "Ada Lovelace", Email: email, Password: "correct horse", Phone: "+66 81-234-5678", Country: "TH"}
}

func TestAuthService_SignupLoginAuthenticate(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f, nil)

	sess, err := svc.Signup(f.ctx, signup("  Ada@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.Equal(t, "+66812345678", sess.User.Phone)
	assert.NotEqual(t, "correct horse", sess.User.PasswordHash)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.Signup(f.ctx, signup("ADA@example.com"))
	assert.ErrorIs(t, err, ErrConflict)

	login, err := svc.Login(f.ctx, "ADA@EXAMPLE.COM", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(f.ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(f.ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrUnauthorized)

	u, err := svc.Authenticate(f.ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	me, err := svc.Me(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", me.FullName)
}

func TestAuthService_SignupValidates(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f, nil)

	in := signup("not-an-email")
	_, err := svc.Signup(f.ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = signup("ok@example.com")
	in.Password = "short"
	_, err = svc.Signup(f.ctx, in)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, auth.ErrPasswordTooShort.Error(), Reason(err))

	in = signup("ok@example.com")
	in.FullName = " "
	_, err = svc.Signup(f.ctx, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_AuthenticateFailsClosed(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f, nil)

	_, err := svc.Authenticate(f.ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Authenticate(f.ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	sess, err := svc.Signup(f.ctx, signup("gone@example.com"))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = svc.Authenticate(f.ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized, "expired token")

	fresh, err := svc.Login(f.ctx, "gone@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&model.User{}, "id = ?", sess.User.ID).Error)
	_, err = svc.Authenticate(f.ctx, fresh.Token)
	assert.ErrorIs(t, err, ErrUnauthorized, "deleted user")
}

func TestAuthService_OAuth(t *testing.T) {
	f := newFixture(t)
	google := &auth.Identity{Provider: model.AuthProviderGoogle, ProviderID: "g-1", Email: "Grace@Example.com", FullName: "Grace Hopper"}
	svc := newAuthService(f, map[model.AuthProvider]auth.IdentityVerifier{
		model.AuthProviderGoogle:   stubVerifier{ident: google},
		model.AuthProviderFacebook: stubVerifier{err: auth.ErrOAuthRejected},
	})

	first, err := svc.OAuth(f.ctx, model.AuthProviderGoogle, "id-token")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", first.User.Email)
	assert.Equal(t, model.AuthProviderGoogle, first.User.Provider)
	assert.Empty(t, first.User.PasswordHash)

	second, err := svc.OAuth(f.ctx, model.AuthProviderGoogle, "id-token")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	// oauth-only accounts cannot log in with a password
	_, err = svc.Login(f.ctx, "grace@example.com", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.OAuth(f.ctx, model.AuthProviderFacebook, "access-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.OAuth(f.ctx, "myspace", "token")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.OAuth(f.ctx, model.AuthProviderGoogle, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_OAuthLinksExistingEmail(t *testing.T) {
	f := newFixture(t)
	local, err := newAuthService(f, nil).Signup(f.ctx, signup("linus@example.com"))
	require.NoError(t, err)

	svc := newAuthService(f, map[model.AuthProvider]auth.IdentityVerifier{
		model.AuthProviderFacebook: stubVerifier{ident: &auth.Identity{
			Provider: model.AuthProviderFacebook, ProviderID: "fb-7", Email: "linus@example.com",
		}},
		model.AuthProviderGoogle: stubVerifier{err: errors.New("tokeninfo unreachable")},
	})

	sess, err := svc.OAuth(f.ctx, model.AuthProviderFacebook, "access-token")
	require.NoError(t, err)
	assert.Equal(t, local.User.ID, sess.User.ID)
	assert.Equal(t, model.AuthProviderFacebook, sess.User.Provider)

	// the password keeps working after linking
	_, err = svc.Login(f.ctx, "linus@example.com", "correct horse")
	require.NoError(t, err)

	_, err = svc.OAuth(f.ctx, model.AuthProviderGoogle, "id-token")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestAuthService_OAuthProviderOutageIsUpstream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") == "expired" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newAuthService(f, map[model.AuthProvider]auth.IdentityVerifier{
		model.AuthProviderFacebook: &auth.FacebookVerifier{Endpoint: srv.URL, HTTP: srv.Client()},
	})

	_, err := svc.OAuth(f.ctx, model.AuthProviderFacebook, "access-token")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	_, err = svc.OAuth(f.ctx, model.AuthProviderFacebook, "expired")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

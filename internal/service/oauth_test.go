package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/oauth"
	"cordfriend.app/server/internal/service"
	"cordfriend.app/server/internal/store"
)

type stubProvider struct {
	identity *oauth.Identity
	err      error
}

func (p *stubProvider) Name() string {
	return "google"
}

func (p *stubProvider) AuthCodeURL(state string) (string, error) {
	return "https://accounts.example.test/auth?state=" + state, nil
}

func (p *stubProvider) Exchange(context.Context, string) (*oauth.Identity, error) {
	return p.identity, p.err
}

var _ = Describe("OAuthService", func() {
	var (
		ctx          context.Context
		accounts     accountTable
		mockAccounts *mockAccountStore
		mockCreds    *mockCredentialStore
		links        []*model.CredentialLink
		provider     *stubProvider
		issuer       *auth.TokenIssuer
		svc          service.OAuthService
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		accounts = accountTable{}
		mockAccounts = &mockAccountStore{}
		accounts.wire(mockAccounts)

		links = nil
		mockCreds = &mockCredentialStore{
			getFn: func(_ context.Context, p, subject string) (*model.CredentialLink, error) {
				for _, l := range links {
					if l.Provider == p && l.Subject == subject {
						return l, nil
					}
				}
				return nil, store.ErrNotFound
			},
			createFn: func(_ context.Context, link *model.CredentialLink) error {
				links = append(links, link)
				return nil
			},
		}

		provider = &stubProvider{identity: &oauth.Identity{Provider: "google", Subject: "g-123", Email: "sam@example.com"}}
		issuer = auth.NewTokenIssuer([]byte("test-secret"), 7*24*time.Hour)
		runner := service.NewSequentialRunner(&mockStoreProvider{accounts: mockAccounts, credentials: mockCreds})
		svc = service.NewOAuthService(oauth.NewRegistry(provider), mockAccounts, mockCreds, runner, issuer)
	})

	It("builds the provider authorization url", func() {
		url, err := svc.AuthorizationURL("google", "state-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(ContainSubstring("state=state-1"))

		_, err = svc.AuthorizationURL("github", "state-1")
		Expect(err).To(MatchError(service.ErrNotFound))
	})

	It("creates a password-less account and link on first sign-in", func() {
		session, err := svc.Callback(ctx, "google", "code")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Account.PasswordHash).To(BeNil())
		Expect(accounts).To(HaveLen(1))
		Expect(links).To(HaveLen(1))
		Expect(links[0].AccountID).To(Equal(session.Account.ID))

		claims, err := issuer.Verify(session.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.AccountID).To(Equal(session.Account.ID))
	})

	It("reuses the linked account on later sign-ins", func() {
		first, err := svc.Callback(ctx, "google", "code")
		Expect(err).NotTo(HaveOccurred())
		accounts[first.Account.ID].TokenVersion = 4

		second, err := svc.Callback(ctx, "google", "code")
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Account.ID).To(Equal(first.Account.ID))
		Expect(accounts).To(HaveLen(1))

		claims, err := issuer.Verify(second.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.TokenVersion).To(Equal(int64(4)))
	})

	It("does not take over an existing password account", func() {
		hash := "hash"
		accounts[5] = &model.Account{ID: 5, Email: "sam@example.com", PasswordHash: &hash}

		_, err := svc.Callback(ctx, "google", "code")
		Expect(err).To(MatchError(service.ErrConflict))
		Expect(links).To(BeEmpty())
	})

	It("maps exchange failures to unauthorized", func() {
		provider.err = oauth.ErrExchange
		_, err := svc.Callback(ctx, "google", "bad-code")
		Expect(err).To(MatchError(service.ErrUnauthorized))

		provider.err = oauth.ErrUnverifiedEmail
		_, err = svc.Callback(ctx, "google", "code")
		Expect(err).To(MatchError(service.ErrUnauthorized))
	})

	It("requires a code", func() {
		_, err := svc.Callback(ctx, "google", "")
		Expect(err).To(MatchError(service.ErrValidation))
	})
})

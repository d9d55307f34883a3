package service_test

import (
	"bytes"
	"context"
	"io"

	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/service"
	"cordfriend.app/server/internal/store"
)

type mockAccountStore struct {
	getByIDFn          func(ctx context.Context, id int64) (*model.Account, error)
	getByEmailFn       func(ctx context.Context, email string) (*model.Account, error)
	createFn           func(ctx context.Context, account *model.Account) error
	updateProfileFn    func(ctx context.Context, id int64, email string, passwordHash *string) error
	incrementVersionFn func(ctx context.Context, id int64) error
	addBotFn           func(ctx context.Context, accountID, botID int64) error
	removeBotFn        func(ctx context.Context, accountID, botID int64) error
	deleteFn           func(ctx context.Context, id int64) error

	createCalls        int
	updateProfileCalls int
	deleteCalls        int
}

func (m *mockAccountStore) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, store.ErrNotFound
}

func (m *mockAccountStore) Create(ctx context.Context, account *model.Account) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

func (m *mockAccountStore) UpdateProfile(ctx context.Context, id int64, email string, passwordHash *string) error {
	m.updateProfileCalls++
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, email, passwordHash)
	}
	return nil
}

func (m *mockAccountStore) IncrementTokenVersion(ctx context.Context, id int64) error {
	if m.incrementVersionFn != nil {
		return m.incrementVersionFn(ctx, id)
	}
	return nil
}

func (m *mockAccountStore) AddBot(ctx context.Context, accountID, botID int64) error {
	if m.addBotFn != nil {
		return m.addBotFn(ctx, accountID, botID)
	}
	return nil
}

func (m *mockAccountStore) RemoveBot(ctx context.Context, accountID, botID int64) error {
	if m.removeBotFn != nil {
		return m.removeBotFn(ctx, accountID, botID)
	}
	return nil
}

func (m *mockAccountStore) Delete(ctx context.Context, id int64) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockCredentialStore struct {
	getFn             func(ctx context.Context, provider, subject string) (*model.CredentialLink, error)
	createFn          func(ctx context.Context, link *model.CredentialLink) error
	deleteByAccountFn func(ctx context.Context, accountID int64) error
}

func (m *mockCredentialStore) GetByProviderSubject(ctx context.Context, provider, subject string) (*model.CredentialLink, error) {
	if m.getFn != nil {
		return m.getFn(ctx, provider, subject)
	}
	return nil, store.ErrNotFound
}

func (m *mockCredentialStore) Create(ctx context.Context, link *model.CredentialLink) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockCredentialStore) DeleteByAccount(ctx context.Context, accountID int64) error {
	if m.deleteByAccountFn != nil {
		return m.deleteByAccountFn(ctx, accountID)
	}
	return nil
}

type mockBotStore struct {
	getByIDFn       func(ctx context.Context, id int64) (*model.Bot, error)
	serverIDTakenFn func(ctx context.Context, serverID string, excludeID int64) (bool, error)
	createFn        func(ctx context.Context, bot *model.Bot) error
	updateFn        func(ctx context.Context, bot *model.Bot) error
	deleteFn        func(ctx context.Context, id, ownerID int64) error

	updateCalls int
}

func (m *mockBotStore) GetByID(ctx context.Context, id int64) (*model.Bot, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockBotStore) ServerIDTaken(ctx context.Context, serverID string, excludeID int64) (bool, error) {
	if m.serverIDTakenFn != nil {
		return m.serverIDTakenFn(ctx, serverID, excludeID)
	}
	return false, nil
}

func (m *mockBotStore) Create(ctx context.Context, bot *model.Bot) error {
	if m.createFn != nil {
		return m.createFn(ctx, bot)
	}
	return nil
}

func (m *mockBotStore) Update(ctx context.Context, bot *model.Bot) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, bot)
	}
	return nil
}

func (m *mockBotStore) Delete(ctx context.Context, id, ownerID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, ownerID)
	}
	return nil
}

// memImageStore keeps blobs in memory so uploads can be read back.
type memImageStore struct {
	images  map[int64]*model.Image
	content map[int64][]byte

	putCalls  int
	deleteErr error
	deleted   []int64
}

func newMemImageStore() *memImageStore {
	return &memImageStore{images: map[int64]*model.Image{}, content: map[int64][]byte{}}
}

func (m *memImageStore) Put(_ context.Context, image *model.Image, content io.Reader) error {
	m.putCalls++
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	image.Length = int64(len(data))
	stored := *image
	m.images[image.ID] = &stored
	m.content[image.ID] = data
	return nil
}

func (m *memImageStore) Open(_ context.Context, id int64) (*model.Image, io.ReadCloser, error) {
	image, ok := m.images[id]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	copied := *image
	return &copied, io.NopCloser(bytes.NewReader(m.content[id])), nil
}

func (m *memImageStore) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.images[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.images, id)
	delete(m.content, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memImageStore) seed(id int64, contentType string, data []byte) {
	m.images[id] = &model.Image{ID: id, ContentType: contentType, Length: int64(len(data))}
	m.content[id] = data
}

type mockStoreProvider struct {
	accounts    store.AccountStore
	credentials store.CredentialStore
	bots        store.BotStore
}

func (m *mockStoreProvider) Accounts() store.AccountStore {
	return m.accounts
}

func (m *mockStoreProvider) Credentials() store.CredentialStore {
	return m.credentials
}

func (m *mockStoreProvider) Bots() store.BotStore {
	return m.bots
}

type mockTxRunner struct {
	stores        service.StoreProvider
	transactional bool
	withTxFn      func(ctx context.Context, fn func(ctx context.Context, stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context, stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(ctx, m.stores)
}

func (m *mockTxRunner) Transactional() bool {
	return m.transactional
}

package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/service"
	"cordfriend.app/server/internal/store"
)

var _ = Describe("BotDeleter", func() {
	var (
		ctx          context.Context
		accounts     accountTable
		mockAccounts *mockAccountStore
		mockBots     *mockBotStore
		images       *memImageStore
		bots         map[int64]*model.Bot
		provider     *mockStoreProvider
		deleter      service.BotDeleter
		steps        []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		steps = nil

		accounts = accountTable{1: {ID: 1, Email: "owner@example.com", Bots: []int64{10, 11}}}
		mockAccounts = &mockAccountStore{}
		accounts.wire(mockAccounts)
		wiredRemove := mockAccounts.removeBotFn
		mockAccounts.removeBotFn = func(ctx context.Context, accountID, botID int64) error {
			steps = append(steps, "detach")
			return wiredRemove(ctx, accountID, botID)
		}

		bots = map[int64]*model.Bot{
			10: {ID: 10, OwnerID: 1, ImageID: 100},
			11: {ID: 11, OwnerID: 1, ImageID: 110},
		}
		mockBots = &mockBotStore{
			getByIDFn: func(_ context.Context, id int64) (*model.Bot, error) {
				b, ok := bots[id]
				if !ok {
					return nil, store.ErrNotFound
				}
				return b, nil
			},
			deleteFn: func(_ context.Context, id, ownerID int64) error {
				steps = append(steps, "bot")
				b, ok := bots[id]
				if !ok || b.OwnerID != ownerID {
					return store.ErrNotFound
				}
				delete(bots, id)
				return nil
			},
		}

		images = newMemImageStore()
		images.seed(100, "image/png", []byte("a"))
		images.seed(110, "image/png", []byte("b"))

		provider = &mockStoreProvider{accounts: mockAccounts, bots: mockBots}
		deleter = service.NewBotDeleter(service.NewSequentialRunner(provider), images, nil)
	})

	It("deletes, detaches and removes the image in order", func() {
		result, err := deleter.Delete(ctx, service.DeleteBotParams{
			BotID: "10", OwnerID: "1", ImageID: "100", DetachFromOwner: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.BotDeleted).To(BeTrue())
		Expect(result.Detached).To(BeTrue())
		Expect(result.ImageDeleted).To(BeTrue())
		Expect(result.Warnings).To(BeEmpty())
		Expect(steps).To(Equal([]string{"bot", "detach"}))

		Expect(accounts[1].Bots).To(Equal([]int64{11}))
		_, err = mockBots.GetByID(ctx, 10)
		Expect(err).To(MatchError(store.ErrNotFound))
		Expect(images.deleted).To(ConsistOf(int64(100)))
	})

	It("leaves the owner's list alone without detach", func() {
		result, err := deleter.Delete(ctx, service.DeleteBotParams{BotID: "10", OwnerID: "1", ImageID: "100"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Detached).To(BeFalse())
		Expect(accounts[1].Bots).To(Equal([]int64{10, 11}))
		Expect(steps).To(Equal([]string{"bot"}))
	})

	DescribeTable("rejects malformed ids before touching storage",
		func(params service.DeleteBotParams, message string) {
			_, err := deleter.Delete(ctx, params)
			Expect(err).To(MatchError(service.ErrValidation))
			Expect(messageOf(err)).To(Equal(message))
			Expect(steps).To(BeEmpty())
		},
		Entry("bot id", service.DeleteBotParams{BotID: "abc", OwnerID: "x", ImageID: "y"}, "Invalid bot ID format."),
		Entry("owner id", service.DeleteBotParams{BotID: "10", OwnerID: "-1", ImageID: "y"}, "Invalid user ID format."),
		Entry("image id", service.DeleteBotParams{BotID: "10", OwnerID: "1", ImageID: "0"}, "Invalid bot image ID format."),
	)

	It("skips the blob step for a bot without an image", func() {
		result, err := deleter.Delete(ctx, service.DeleteBotParams{BotID: "10", OwnerID: "1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.BotDeleted).To(BeTrue())
		Expect(result.ImageDeleted).To(BeFalse())
		Expect(result.Warnings).To(BeEmpty())
		Expect(images.deleted).To(BeEmpty())
	})

	It("reports a missing bot as not found", func() {
		_, err := deleter.Delete(ctx, service.DeleteBotParams{BotID: "12", OwnerID: "1", ImageID: "100"})
		Expect(err).To(MatchError(service.ErrNotFound))
		Expect(messageOf(err)).To(Equal("Bot not found."))
		Expect(images.deleted).To(BeEmpty())
	})

	It("does not delete another owner's bot", func() {
		_, err := deleter.Delete(ctx, service.DeleteBotParams{BotID: "10", OwnerID: "2", ImageID: "100"})
		Expect(err).To(MatchError(service.ErrNotFound))
		Expect(bots).To(HaveKey(int64(10)))
	})

	It("keeps the record deleted when the owner is missing on the sequential path", func() {
		delete(accounts, 1)
		result, err := deleter.Delete(ctx, service.DeleteBotParams{
			BotID: "10", OwnerID: "1", ImageID: "100", DetachFromOwner: true,
		})
		Expect(err).To(MatchError(service.ErrNotFound))
		Expect(messageOf(err)).To(Equal("User not found."))
		Expect(result.BotDeleted).To(BeTrue())
		Expect(result.Detached).To(BeFalse())
		Expect(bots).NotTo(HaveKey(int64(10)))
		Expect(images.deleted).To(BeEmpty())
	})

	It("reports nothing deleted when a transaction rolls back", func() {
		delete(accounts, 1)
		snapshot := map[int64]*model.Bot{10: bots[10], 11: bots[11]}
		runner := &mockTxRunner{
			transactional: true,
			withTxFn: func(ctx context.Context, fn func(context.Context, service.StoreProvider) error) error {
				err := fn(ctx, provider)
				if err != nil {
					for k, v := range snapshot {
						bots[k] = v
					}
				}
				return err
			},
		}
		deleter = service.NewBotDeleter(runner, images, nil)

		result, err := deleter.Delete(ctx, service.DeleteBotParams{
			BotID: "10", OwnerID: "1", ImageID: "100", DetachFromOwner: true,
		})
		Expect(err).To(MatchError(service.ErrNotFound))
		Expect(result.BotDeleted).To(BeFalse())
		Expect(bots).To(HaveKey(int64(10)))
	})

	It("turns an image failure into a warning", func() {
		images.deleteErr = errors.New("bucket offline")
		result, err := deleter.Delete(ctx, service.DeleteBotParams{
			BotID: "10", OwnerID: "1", ImageID: "100", DetachFromOwner: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.BotDeleted).To(BeTrue())
		Expect(result.Detached).To(BeTrue())
		Expect(result.ImageDeleted).To(BeFalse())
		Expect(result.Warnings).To(HaveLen(1))
		Expect(result.Warnings[0]).To(ContainSubstring("bucket offline"))
	})

	It("maps an unavailable database to ErrUnavailable", func() {
		mockBots.deleteFn = func(context.Context, int64, int64) error {
			return store.ErrUnavailable
		}
		_, err := deleter.Delete(ctx, service.DeleteBotParams{BotID: "10", OwnerID: "1", ImageID: "100"})
		Expect(err).To(MatchError(service.ErrUnavailable))
	})
})

package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/secret"
	"cordfriend.app/server/internal/service"
	"cordfriend.app/server/internal/store"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var _ = Describe("BotService", func() {
	var (
		ctx          context.Context
		accounts     accountTable
		mockAccounts *mockAccountStore
		mockBots     *mockBotStore
		images       *memImageStore
		codec        *secret.Codec
		bots         map[int64]*model.Bot
		svc          service.BotService
	)

	validInput := func() service.BotInput {
		return service.BotInput{
			Name:          "Nova",
			Persona:       "cheerful",
			ServerID:      "server-1",
			GoogleAIKey:   "google-key",
			ImageID:       "100",
			ImageFilename: "nova.png",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		var err error
		codec, err = secret.NewCodec(testKeyHex)
		Expect(err).NotTo(HaveOccurred())

		accounts = accountTable{1: {ID: 1, Email: "owner@example.com", Bots: []int64{}}}
		mockAccounts = &mockAccountStore{}
		accounts.wire(mockAccounts)
		mockAccounts.addBotFn = func(_ context.Context, accountID, botID int64) error {
			a, ok := accounts[accountID]
			if !ok {
				return store.ErrNotFound
			}
			a.Bots = append(a.Bots, botID)
			return nil
		}

		bots = map[int64]*model.Bot{}
		mockBots = &mockBotStore{
			getByIDFn: func(_ context.Context, id int64) (*model.Bot, error) {
				b, ok := bots[id]
				if !ok {
					return nil, store.ErrNotFound
				}
				copied := *b
				return &copied, nil
			},
			serverIDTakenFn: func(_ context.Context, serverID string, excludeID int64) (bool, error) {
				for _, b := range bots {
					if b.ServerID == serverID && b.ID != excludeID {
						return true, nil
					}
				}
				return false, nil
			},
			createFn: func(_ context.Context, bot *model.Bot) error {
				copied := *bot
				bots[bot.ID] = &copied
				return nil
			},
			deleteFn: func(_ context.Context, id, ownerID int64) error {
				b, ok := bots[id]
				if !ok || b.OwnerID != ownerID {
					return store.ErrNotFound
				}
				delete(bots, id)
				return nil
			},
		}
		mockBots.updateFn = func(_ context.Context, bot *model.Bot) error {
			copied := *bot
			bots[bot.ID] = &copied
			return nil
		}

		images = newMemImageStore()
		images.seed(100, "image/png", []byte("png"))

		runner := service.NewSequentialRunner(&mockStoreProvider{accounts: mockAccounts, bots: mockBots})
		deleter := service.NewBotDeleter(runner, images, nil)
		svc = service.NewBotService(mockAccounts, mockBots, images, runner, deleter, codec, nil)
	})

	Describe("Create", func() {
		It("encrypts secrets and links the bot to its owner", func() {
			input := validInput()
			input.OpenWeatherKey = "weather-key"

			bot, err := svc.Create(ctx, 1, input)
			Expect(err).NotTo(HaveOccurred())
			Expect(bot.OwnerID).To(Equal(int64(1)))
			Expect(bot.ImageID).To(Equal(int64(100)))
			Expect(accounts[1].Bots).To(Equal([]int64{bot.ID}))

			stored := bots[bot.ID]
			Expect(stored.GoogleAIKey.EncryptedData).NotTo(ContainSubstring("google-key"))
			plain, err := codec.Decrypt(stored.GoogleAIKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(plain).To(Equal("google-key"))
			plain, err = codec.Decrypt(stored.OpenWeatherKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(plain).To(Equal("weather-key"))
		})

		It("leaves the optional weather key empty", func() {
			bot, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())
			Expect(bots[bot.ID].OpenWeatherKey.IsZero()).To(BeTrue())
		})

		It("reports every missing field", func() {
			_, err := svc.Create(ctx, 1, service.BotInput{})
			Expect(err).To(MatchError(service.ErrValidation))
			var svcErr *service.Error
			Expect(errors.As(err, &svcErr)).To(BeTrue())
			Expect(svcErr.Fields).To(HaveKey("name"))
			Expect(svcErr.Fields).To(HaveKey("server_id"))
			Expect(svcErr.Fields).To(HaveKey("google_ai_api"))
			Expect(svcErr.Fields).To(HaveKey("image_id"))
		})

		It("rejects a server that already has a bot", func() {
			bots[5] = &model.Bot{ID: 5, OwnerID: 2, ServerID: "server-1"}
			_, err := svc.Create(ctx, 1, validInput())
			Expect(err).To(MatchError(service.ErrConflict))
			Expect(messageOf(err)).To(Equal("Bot already exists in server."))
		})

		It("requires the referenced image to exist", func() {
			input := validInput()
			input.ImageID = "999"
			_, err := svc.Create(ctx, 1, input)
			Expect(err).To(MatchError(service.ErrNotFound))
			Expect(bots).To(BeEmpty())
		})

		It("removes the bot again when the owner cannot be linked", func() {
			delete(accounts, 1)
			_, err := svc.Create(ctx, 1, validInput())
			Expect(err).To(MatchError(service.ErrNotFound))
			Expect(bots).To(BeEmpty())
		})
	})

	Describe("List", func() {
		It("returns decrypted bots and counts dangling ids", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())
			accounts[1].Bots = append(accounts[1].Bots, 4242)

			list, err := svc.List(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Missing).To(Equal(1))
			Expect(list.Bots).To(HaveLen(1))
			Expect(list.Bots[0].Bot.ID).To(Equal(created.ID))
			Expect(list.Bots[0].GoogleAIKey).To(Equal("google-key"))
		})

		It("fails for an unknown account", func() {
			_, err := svc.List(ctx, 404)
			Expect(err).To(MatchError(service.ErrNotFound))
		})
	})

	Describe("Get", func() {
		It("hides bots owned by someone else", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Get(ctx, 2, id.Format(created.ID))
			Expect(err).To(MatchError(service.ErrNotFound))

			view, err := svc.Get(ctx, 1, id.Format(created.ID))
			Expect(err).NotTo(HaveOccurred())
			Expect(view.GoogleAIKey).To(Equal("google-key"))
		})

		It("validates the id", func() {
			_, err := svc.Get(ctx, 1, "not-an-id")
			Expect(err).To(MatchError(service.ErrValidation))
		})
	})

	Describe("Edit", func() {
		It("re-encrypts secrets and deletes the replaced image", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())
			images.seed(200, "image/webp", []byte("webp"))

			input := validInput()
			input.Name = "Nova II"
			input.GoogleAIKey = "rotated-key"
			input.ImageID = "200"
			Expect(svc.Edit(ctx, 1, id.Format(created.ID), input)).To(Succeed())

			stored := bots[created.ID]
			Expect(stored.Name).To(Equal("Nova II"))
			Expect(stored.ImageID).To(Equal(int64(200)))
			plain, err := codec.Decrypt(stored.GoogleAIKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(plain).To(Equal("rotated-key"))
			Expect(images.deleted).To(ConsistOf(int64(100)))
		})

		It("keeps the image when it is unchanged", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Edit(ctx, 1, id.Format(created.ID), validInput())).To(Succeed())
			Expect(images.deleted).To(BeEmpty())
		})

		It("rejects a server id used by another bot", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())
			bots[5] = &model.Bot{ID: 5, OwnerID: 2, ServerID: "server-2"}

			input := validInput()
			input.ServerID = "server-2"
			err = svc.Edit(ctx, 1, id.Format(created.ID), input)
			Expect(err).To(MatchError(service.ErrConflict))
			Expect(mockBots.updateCalls).To(BeZero())
		})

		It("does not edit another owner's bot", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())
			err = svc.Edit(ctx, 2, id.Format(created.ID), validInput())
			Expect(err).To(MatchError(service.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("detaches the bot so it can no longer be retrieved", func() {
			created, err := svc.Create(ctx, 1, validInput())
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.Delete(ctx, 1, id.Format(created.ID), "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Detached).To(BeTrue())
			Expect(accounts[1].Bots).To(BeEmpty())

			_, err = svc.Get(ctx, 1, id.Format(created.ID))
			Expect(err).To(MatchError(service.ErrNotFound))
			Expect(images.deleted).To(ConsistOf(int64(100)))
		})

		Context("when another account's bot uses a different image", func() {
			BeforeEach(func() {
				images.seed(110, "image/png", []byte("other"))
				accounts[2] = &model.Account{ID: 2, Email: "other@example.com", Bots: []int64{11}}
				bots[11] = &model.Bot{ID: 11, OwnerID: 2, ServerID: "server-2", ImageID: 110}
			})

			It("refuses to delete the other image", func() {
				created, err := svc.Create(ctx, 1, validInput())
				Expect(err).NotTo(HaveOccurred())

				_, err = svc.Delete(ctx, 1, id.Format(created.ID), "110")
				Expect(err).To(MatchError(service.ErrValidation))

				Expect(images.deleted).To(BeEmpty())
				Expect(bots).To(HaveKey(created.ID))
				_, content, err := images.Open(ctx, 110)
				Expect(err).NotTo(HaveOccurred())
				Expect(content.Close()).To(Succeed())
			})

			It("deletes the stored image when none is named", func() {
				created, err := svc.Create(ctx, 1, validInput())
				Expect(err).NotTo(HaveOccurred())

				result, err := svc.Delete(ctx, 1, id.Format(created.ID), "")
				Expect(err).NotTo(HaveOccurred())
				Expect(result.ImageDeleted).To(BeTrue())
				Expect(images.deleted).To(ConsistOf(int64(100)))
			})

			It("cannot delete the other account's bot", func() {
				_, err := svc.Delete(ctx, 1, "11", "110")
				Expect(err).To(MatchError(service.ErrNotFound))
				Expect(bots).To(HaveKey(int64(11)))
				Expect(images.deleted).To(BeEmpty())
			})
		})
	})
})

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cordfriend.app/server/internal/http/dto"
	"cordfriend.app/server/internal/http/handler"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/service"
)

func multipartBody(field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(mw.Close()).To(Succeed())
	return &buf, mw.FormDataContentType()
}

var _ = Describe("ImageHandler", func() {
	var (
		router *gin.Engine
		svc    *mockImageService
	)

	BeforeEach(func() {
		svc = &mockImageService{}
		router = gin.New()
		h := handler.NewImageHandler(svc)
		router.POST("/api/bot/image-upload/", withSession(), h.Upload)
		router.GET("/api/bot/image-download/:id", h.Download)
	})

	upload := func(body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/bot/image-upload/", body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(sessionCookie())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("hands the file part to the service", func() {
		png := []byte("\x89PNG fake")
		svc.uploadFn = func(_ context.Context, filename, contentType string, size int64, content io.Reader) (*model.Image, error) {
			Expect(filename).To(Equal("cord.png"))
			Expect(contentType).To(Equal("image/png"))
			Expect(size).To(Equal(int64(len(png))))
			data, err := io.ReadAll(content)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(png))
			return &model.Image{ID: 300, Filename: filename}, nil
		}

		body, ct := multipartBody("bot-profile-picture", "cord.png", "image/png", png)
		w := upload(body, ct)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp dto.ImageUploadResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp).To(Equal(dto.ImageUploadResponse{
			Message:  "Image successfully uploaded and staged.",
			FileID:   "300",
			Filename: "cord.png",
		}))
	})

	It("rejects a request without the file field", func() {
		body, ct := multipartBody("avatar", "cord.png", "image/png", []byte("x"))
		w := upload(body, ct)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Message).To(Equal("Please upload an image."))
	})

	It("surfaces the type check from the service", func() {
		svc.uploadFn = func(context.Context, string, string, int64, io.Reader) (*model.Image, error) {
			return nil, &service.Error{Kind: service.ErrValidation, Message: "Only PNG, JPG, JPEG, and WebP image formats are allowed."}
		}

		body, ct := multipartBody("bot-profile-picture", "cord.gif", "image/gif", []byte("GIF89a"))
		w := upload(body, ct)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Message).To(Equal("Only PNG, JPG, JPEG, and WebP image formats are allowed."))
	})

	It("refuses bodies over the size limit", func() {
		called := false
		svc.uploadFn = func(context.Context, string, string, int64, io.Reader) (*model.Image, error) {
			called = true
			return nil, nil
		}

		body, ct := multipartBody("bot-profile-picture", "big.png", "image/png", make([]byte, service.MaxImageSize+128<<10))
		w := upload(body, ct)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Message).To(Equal("Images must be 5 MB or smaller."))
		Expect(called).To(BeFalse())
	})

	It("streams a stored image with its content type", func() {
		content := []byte("webp bytes")
		svc.openFn = func(_ context.Context, imageID string) (*model.Image, io.ReadCloser, error) {
			Expect(imageID).To(Equal("300"))
			return &model.Image{ID: 300, ContentType: "image/webp", Length: int64(len(content)), UploadedAt: time.Now()},
				io.NopCloser(bytes.NewReader(content)), nil
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bot/image-download/300", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("image/webp"))
		Expect(w.Header().Get("Cache-Control")).To(Equal("public, max-age=86400"))
		Expect(w.Body.Bytes()).To(Equal(content))
	})

	It("returns 404 for an unknown image", func() {
		svc.openFn = func(context.Context, string) (*model.Image, io.ReadCloser, error) {
			return nil, nil, &service.Error{Kind: service.ErrNotFound, Message: "Image not found."}
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bot/image-download/301", nil))

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("does not require a session to download", func() {
		svc.openFn = func(context.Context, string) (*model.Image, io.ReadCloser, error) {
			return nil, nil, errors.New("down")
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bot/image-download/1", nil))

		Expect(w.Code).NotTo(Equal(http.StatusUnauthorized))
	})
})

package supabase

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("StorageClient", func() {
	var (
		ghttpServer *ghttp.Server
		storage     *StorageClient
	)

	BeforeEach(func() {
		ghttpServer = ghttp.NewServer()
		storage = NewStorageClient(ghttpServer.URL(), "anon-key", "scan-uploads", StaticToken("token-abc"))
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("Upload", func() {
		When("the upload succeeds", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/storage/v1/object/scan-uploads/user-1/scan-1.jpg"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer token-abc"),
					ghttp.VerifyHeaderKV("x-upsert", "false"),
					ghttp.VerifyHeaderKV("Content-Type", "image/jpeg"),
					ghttp.VerifyBody([]byte("jpeg bytes")),
					ghttp.RespondWith(http.StatusOK, `{"Key":"scan-uploads/user-1/scan-1.jpg"}`),
				))
			})

			It("does not return an error", func() {
				err := storage.Upload(context.Background(), "user-1/scan-1.jpg", []byte("jpeg bytes"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
			})
		})

		When("the key already exists", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(
					ghttp.RespondWith(http.StatusConflict, `{"message":"The resource already exists"}`),
				)
			})

			It("returns an error carrying the status", func() {
				err := storage.Upload(context.Background(), "user-1/scan-1.jpg", []byte("jpeg bytes"), "image/jpeg")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("status 409"))
			})
		})
	})

	Describe("Remove", func() {
		When("the delete succeeds", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("DELETE", "/storage/v1/object/scan-uploads/user-1/scan-1.jpg"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer token-abc"),
					ghttp.RespondWith(http.StatusOK, `{"message":"Successfully deleted"}`),
				))
			})

			It("does not return an error", func() {
				Expect(storage.Remove(context.Background(), "user-1/scan-1.jpg")).To(Succeed())
			})
		})

		When("the object is missing", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(
					ghttp.RespondWith(http.StatusNotFound, `{"message":"Object not found"}`),
				)
			})

			It("returns an error", func() {
				Expect(storage.Remove(context.Background(), "user-1/scan-1.jpg")).NotTo(Succeed())
			})
		})
	})

	Describe("SignedURL", func() {
		When("signing succeeds", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/storage/v1/object/sign/scan-uploads/user-1/scan-1.jpg"),
					ghttp.VerifyJSON(`{"expiresIn": 3600}`),
					ghttp.RespondWith(http.StatusOK, `{"signedURL":"/object/sign/scan-uploads/user-1/scan-1.jpg?token=sig"}`),
				))
			})

			It("joins the relative path onto the storage root", func() {
				signed, err := storage.SignedURL(context.Background(), "user-1/scan-1.jpg", time.Hour)
				Expect(err).NotTo(HaveOccurred())
				Expect(signed).To(Equal(ghttpServer.URL() + "/storage/v1/object/sign/scan-uploads/user-1/scan-1.jpg?token=sig"))
			})
		})

		When("the response carries no signed URL", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(
					ghttp.RespondWith(http.StatusOK, `{}`),
				)
			})

			It("returns an error", func() {
				_, err := storage.SignedURL(context.Background(), "user-1/scan-1.jpg", time.Hour)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	When("the token source fails", func() {
		BeforeEach(func() {
			storage = NewStorageClient(ghttpServer.URL(), "anon-key", "scan-uploads", func(ctx context.Context) (string, error) {
				return "", context.DeadlineExceeded
			})
		})

		It("fails before any request is made", func() {
			err := storage.Upload(context.Background(), "user-1/scan-1.jpg", []byte("jpeg bytes"), "image/jpeg")
			Expect(err).To(HaveOccurred())
			Expect(ghttpServer.ReceivedRequests()).To(BeEmpty())
		})
	})
})

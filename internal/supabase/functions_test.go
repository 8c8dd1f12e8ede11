package supabase

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/veilscan/veilscan/internal/scan"
)

var _ = Describe("FunctionsClient", func() {
	var (
		ghttpServer *ghttp.Server
		functions   *FunctionsClient
	)

	BeforeEach(func() {
		ghttpServer = ghttp.NewServer()
		functions = NewFunctionsClient(ghttpServer.URL(), "anon-key")
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("Search", func() {
		When("the function succeeds", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/functions/v1/reverse-image-search"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer token-abc"),
					ghttp.VerifyJSON(`{"imagePath": "user-1/scan-1.jpg"}`),
					ghttp.RespondWith(http.StatusOK, `{
						"success": true,
						"results": [{"id": "result-aabbcc", "sourceUrl": "https://a.example.com", "sourceDomain": "a.example.com", "title": "Match", "imageUrl": "", "thumbnailUrl": "", "foundAt": "2024-06-01T12:00:00Z"}],
						"totalFound": 1
					}`),
				))
			})

			It("decodes the envelope", func() {
				resp, err := functions.Search(context.Background(), "token-abc", "user-1/scan-1.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Success).To(BeTrue())
				Expect(resp.Results).To(HaveLen(1))
				Expect(resp.TotalFound).To(Equal(1))
			})
		})

		When("the function reports failure", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(
					ghttp.RespondWith(http.StatusInternalServerError,
						`{"success": false, "error": "Reverse image search failed", "results": [], "totalFound": 0}`),
				)
			})

			It("returns the envelope for the caller to inspect", func() {
				resp, err := functions.Search(context.Background(), "token-abc", "user-1/scan-1.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Success).To(BeFalse())
				Expect(resp.Error).To(Equal("Reverse image search failed"))
			})
		})

		When("the function returns no body", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(
					ghttp.RespondWith(http.StatusOK, ""),
				)
			})

			It("rejects with EMPTY_RESPONSE", func() {
				_, err := functions.Search(context.Background(), "token-abc", "user-1/scan-1.jpg")
				Expect(scan.IsCode(err, scan.CodeEmptyResponse)).To(BeTrue())
			})
		})

		When("the transport fails", func() {
			BeforeEach(func() {
				ghttpServer.Close()
			})

			It("rejects with FUNCTION_ERROR", func() {
				_, err := functions.Search(context.Background(), "token-abc", "user-1/scan-1.jpg")
				Expect(scan.IsCode(err, scan.CodeFunction)).To(BeTrue())
			})
		})

		When("the body is not valid JSON", func() {
			BeforeEach(func() {
				ghttpServer.AppendHandlers(
					ghttp.RespondWith(http.StatusBadGateway, "<html>upstream timeout</html>"),
				)
			})

			It("rejects with FUNCTION_ERROR", func() {
				_, err := functions.Search(context.Background(), "token-abc", "user-1/scan-1.jpg")
				Expect(scan.IsCode(err, scan.CodeFunction)).To(BeTrue())
			})
		})
	})
})

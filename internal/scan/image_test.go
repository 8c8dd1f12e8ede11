package scan

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testPNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 10, G: 160, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("PrepareJPEG", func() {
	When("the input is already JPEG", func() {
		var input []byte

		BeforeEach(func() {
			input = testJPEG(6, 3)
		})

		It("passes the bytes through unchanged", func() {
			out, _, _, err := PrepareJPEG(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(input))
		})

		It("probes the dimensions", func() {
			_, width, height, err := PrepareJPEG(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(width).To(Equal(6))
			Expect(height).To(Equal(3))
		})
	})

	When("the input is PNG", func() {
		It("re-encodes to JPEG and keeps the dimensions", func() {
			out, width, height, err := PrepareJPEG(testPNG(5, 7))
			Expect(err).NotTo(HaveOccurred())
			Expect(isJPEGData(out)).To(BeTrue())
			Expect(width).To(Equal(5))
			Expect(height).To(Equal(7))
		})
	})

	When("the input is not a decodable image", func() {
		It("returns an error", func() {
			_, _, _, err := PrepareJPEG([]byte("definitely not pixels"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("isHEICData", func() {
		It("recognizes an ftyp box with a heic brand", func() {
			data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
			data = append(data, make([]byte, 8)...)
			Expect(isHEICData(data)).To(BeTrue())
		})

		It("rejects other containers", func() {
			Expect(isHEICData(testPNG(2, 2))).To(BeFalse())
		})
	})
})

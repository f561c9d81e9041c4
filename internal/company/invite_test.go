package company_test

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/company"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeCodeStore struct {
	taken map[string]bool
	all   bool
	err   error
	calls int
}

func (f *fakeCodeStore) InviteCodeExists(_ context.Context, code string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.all || f.taken[code], nil
}

// cycleReader yields 0, 1, 2, ... forever.
type cycleReader struct{ next byte }

func (c *cycleReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = c.next
		c.next++
	}
	return len(p), nil
}

var _ = Describe("InviteGenerator", func() {
	Describe("Generate", func() {
		It("draws six characters from the unambiguous alphabet", func() {
			gen := company.NewInviteGenerator(&fakeCodeStore{})

			for i := 0; i < 200; i++ {
				code, err := gen.Generate()
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(HaveLen(company.InviteCodeLength))
				for _, ch := range code {
					Expect(strings.ContainsRune(company.InviteAlphabet, ch)).To(BeTrue(), "unexpected %q in %s", ch, code)
				}
				Expect(code).NotTo(ContainSubstring("I"))
				Expect(code).NotTo(ContainSubstring("O"))
				Expect(code).NotTo(ContainSubstring("0"))
				Expect(code).NotTo(ContainSubstring("1"))
			}
		})

		It("maps each random byte onto the alphabet modulo 32", func() {
			// Given
			gen := company.NewInviteGenerator(&fakeCodeStore{}).
				WithRandom(bytes.NewReader([]byte{0, 1, 31, 32, 63, 255}))

			// When
			code, err := gen.Generate()

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal("AB9A99"))
		})

		It("fails when the entropy source runs dry", func() {
			gen := company.NewInviteGenerator(&fakeCodeStore{}).WithRandom(bytes.NewReader([]byte{1, 2}))

			_, err := gen.Generate()

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CreateUnique", func() {
		It("returns the first free code", func() {
			// Given the first draw "ABCDEF" is taken
			store := &fakeCodeStore{taken: map[string]bool{"ABCDEF": true}}
			gen := company.NewInviteGenerator(store).WithRandom(&cycleReader{})

			// When
			code, err := gen.CreateUnique(context.Background())

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal("GHJKLM"))
			Expect(store.calls).To(Equal(2))
		})

		It("gives up with a conflict after ten collisions", func() {
			// Given every code is taken
			store := &fakeCodeStore{all: true}
			gen := company.NewInviteGenerator(store)

			// When
			_, err := gen.CreateUnique(context.Background())

			// Then
			Expect(err).To(MatchError(internal.ErrInviteCodeExhausted))
			Expect(store.calls).To(Equal(company.MaxInviteAttempts))
			appErr, ok := internal.AsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(409))
		})

		It("surfaces store failures as internal errors", func() {
			store := &fakeCodeStore{err: errors.New("connection reset")}
			gen := company.NewInviteGenerator(store)

			_, err := gen.CreateUnique(context.Background())

			appErr, ok := internal.AsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
			Expect(store.calls).To(Equal(1))
		})
	})

	DescribeTable("NormalizeInviteCode",
		func(in, out string) {
			Expect(company.NormalizeInviteCode(in)).To(Equal(out))
		},
		Entry("lowercase", "abc234", "ABC234"),
		Entry("surrounding spaces", "  XYZ789 ", "XYZ789"),
		Entry("already normal", "QWERTY", "QWERTY"),
	)
})

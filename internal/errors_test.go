package internal_test

import (
	"errors"
	"testing"

	"github.com/frahmantamala/asubt-console/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

var _ = Describe("AppError", func() {
	It("leaves shared sentinels untouched when adding a cause", func() {
		cause := errors.New("slot table locked")

		wrapped := internal.ErrNoSession.WithCause(cause)

		Expect(wrapped).NotTo(BeIdenticalTo(internal.ErrNoSession))
		Expect(errors.Is(wrapped, cause)).To(BeTrue())
		Expect(wrapped.Type).To(Equal(internal.ErrorTypeAuth))
		Expect(internal.ErrNoSession.Cause).To(BeNil())
		Expect(internal.ErrNoSession.Error()).To(Equal("Not signed in"))
	})

	It("leaves shared sentinels untouched when adding details", func() {
		details := internal.ValidationErrors{Errors: []internal.ValidationError{{Field: "format", Message: "unknown"}}}

		detailed := internal.ErrReportNotGenerated.WithDetails(details)

		Expect(detailed.Details).To(Equal(details))
		Expect(internal.ErrReportNotGenerated.Details).To(BeNil())
	})
})

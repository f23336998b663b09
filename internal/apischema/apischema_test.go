package apischema_test

import (
	"testing"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAPISchema(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "APISchema Suite")
}

var _ = Describe("Validator", func() {
	var v *apischema.Validator

	BeforeEach(func() {
		var err error
		v, err = apischema.NewValidator()
		Expect(err).NotTo(HaveOccurred())
	})

	It("accepts a login success", func() {
		body := `{"success":true,"token":"t1","user":{"id":1,"email":"a@b.com","full_name":"A B","role":"user","department":null,"position":null}}`
		Expect(v.Validate(apischema.AuthSuccess, []byte(body))).To(Succeed())
	})

	It("rejects a login success without token", func() {
		err := v.Validate(apischema.AuthSuccess, []byte(`{"user":{"id":1,"email":"a@b.com","role":"user"}}`))
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeProtocol))
	})

	It("rejects an unknown role", func() {
		err := v.Validate(apischema.AuthSuccess, []byte(`{"token":"t","user":{"id":1,"email":"a@b.com","role":"root"}}`))
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeProtocol))
	})

	It("accepts documents with extra server columns and null fields", func() {
		body := `{"documents":[{"id":5,"title":"Инструкция","doc_type":"instruction","content":null,"file_url":"","created_by":1,"creator_name":"A B","created_at":"2024-03-01 10:00:00.123456","status":"active","updated_at":"2024-03-01 10:00:00"}]}`
		Expect(v.Validate(apischema.DocumentList, []byte(body))).To(Succeed())
	})

	It("rejects a list envelope under the wrong key", func() {
		err := v.Validate(apischema.EventList, []byte(`{"items":[]}`))
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeProtocol))
	})

	It("accepts report payloads of any type", func() {
		Expect(v.Validate(apischema.ReportPayload, []byte(`{"type":"summary","generated_at":"2024-03-01T10:00:00","statistics":{"total_users":3}}`))).To(Succeed())
		Expect(v.Validate(apischema.ReportPayload, []byte(`{}`))).To(Succeed())
	})

	It("is a no-op when nil", func() {
		var none *apischema.Validator
		Expect(none.Validate(apischema.DocumentList, []byte("garbage"))).To(Succeed())
	})

	It("exposes the raw contract", func() {
		Expect(string(apischema.Spec())).To(ContainSubstring("openapi: 3.0.3"))
	})
})

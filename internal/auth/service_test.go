package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finadmin/expense-authorization/internal"
	"github.com/finadmin/expense-authorization/internal/auth"
)

var _ = Describe("AuthService", func() {
	var (
		privateKey *rsa.PrivateKey
		service    *auth.Service
	)

	const issuer = "identity.example.com"

	BeforeEach(func() {
		var err error
		privateKey, err = rsa.GenerateKey(rand.Reader, 2048)
		Expect(err).NotTo(HaveOccurred())

		validator := auth.NewRSATokenValidator(&privateKey.PublicKey, issuer)
		service = auth.NewService(validator)
	})

	signToken := func(claims auth.Claims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		signed, err := token.SignedString(privateKey)
		Expect(err).NotTo(HaveOccurred())
		return signed
	}

	validClaims := func() auth.Claims {
		return auth.Claims{
			PersonID:    "person-a",
			Name:        "Alice",
			CompanyID:   1,
			Permissions: []string{"decide_expenses"},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u-2",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	Describe("ResolveUser", func() {
		It("should resolve a valid token into a typed user", func() {
			user, err := service.ResolveUser(signToken(validClaims()))
			Expect(err).NotTo(HaveOccurred())

			Expect(user.ID).To(Equal("u-2"))
			Expect(user.PersonID).To(Equal("person-a"))
			Expect(user.Name).To(Equal("Alice"))
			Expect(user.CompanyID).To(Equal(int64(1)))
			Expect(user.Permissions).To(ConsistOf("decide_expenses"))
		})

		It("should reject an expired token", func() {
			claims := validClaims()
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

			_, err := service.ResolveUser(signToken(claims))
			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("should reject a token from the wrong issuer", func() {
			claims := validClaims()
			claims.Issuer = "somewhere-else"

			_, err := service.ResolveUser(signToken(claims))
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject tokens signed with a symmetric key", func() {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
			signed, err := token.SignedString([]byte("not-an-rsa-key"))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ResolveUser(signed)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject tokens without a person id", func() {
			claims := validClaims()
			claims.PersonID = ""

			_, err := service.ResolveUser(signToken(claims))
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject tokens without a company", func() {
			claims := validClaims()
			claims.CompanyID = 0

			_, err := service.ResolveUser(signToken(claims))
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject garbage", func() {
			_, err := service.ResolveUser("not.a.token")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})
})

var _ = Describe("PermissionChecker", func() {
	checker := auth.NewPermissionChecker()

	It("should grant each capability by its own permission", func() {
		Expect(checker.CanConfigureTrees([]string{"configure_trees"})).To(BeTrue())
		Expect(checker.CanSubmitExpenses([]string{"submit_expenses"})).To(BeTrue())
		Expect(checker.CanDecideExpenses([]string{"decide_expenses"})).To(BeTrue())
		Expect(checker.CanManagePayments([]string{"manage_payments"})).To(BeTrue())
	})

	It("should grant everything to admins", func() {
		admin := []string{"admin"}
		Expect(checker.CanConfigureTrees(admin)).To(BeTrue())
		Expect(checker.CanSubmitExpenses(admin)).To(BeTrue())
		Expect(checker.CanDecideExpenses(admin)).To(BeTrue())
		Expect(checker.CanManagePayments(admin)).To(BeTrue())
		Expect(checker.IsAdmin(admin)).To(BeTrue())
	})

	It("should deny capabilities the caller does not hold", func() {
		submitterOnly := []string{"submit_expenses"}
		Expect(checker.CanConfigureTrees(submitterOnly)).To(BeFalse())
		Expect(checker.CanDecideExpenses(submitterOnly)).To(BeFalse())
		Expect(checker.CanManagePayments(submitterOnly)).To(BeFalse())
		Expect(checker.IsAdmin(submitterOnly)).To(BeFalse())
	})

	It("should deny everything on an empty permission set", func() {
		Expect(checker.CanSubmitExpenses(nil)).To(BeFalse())
		Expect(checker.HasAnyPermission(nil, []string{"admin"})).To(BeFalse())
	})
})

package user

import (
	"context"
	"testing"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/company"
	companyDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "UserRepository Suite")
}

var _ = Describe("Repository", func() {
	var (
		db   *gorm.DB
		repo *Repository
		ctx  context.Context
	)

	newUser := func(email string) *user.User {
		return &user.User{
			Name:         "Someone",
			Email:        email,
			PasswordHash: "hash",
			AccountType:  coreUser.AccountCompany,
			Role:         coreUser.RoleManager,
			IsActive:     true,
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &companyDatamodel.Company{})).To(Succeed())

		repo = NewRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("CreateWithCompany", func() {
		It("links founder and company", func() {
			// Given
			founder := newUser("founder@acme.test")
			c := company.NewCompany("Acme", 0, "ACME23")

			// When
			Expect(repo.CreateWithCompany(ctx, founder, c)).To(Succeed())

			// Then
			Expect(c.ID).NotTo(BeZero())
			Expect(c.CreatedBy).To(Equal(founder.ID))
			stored, err := repo.GetByID(ctx, founder.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.CompanyID).NotTo(BeNil())
			Expect(*stored.CompanyID).To(Equal(c.ID))
		})

		It("rolls the founder back when the invite code is taken", func() {
			// Given a company already holding the code
			Expect(repo.CreateWithCompany(ctx, newUser("first@acme.test"), company.NewCompany("Acme", 0, "SAME22"))).To(Succeed())

			// When a second founder collides on it
			err := repo.CreateWithCompany(ctx, newUser("second@globex.test"), company.NewCompany("Globex", 0, "SAME22"))

			// Then
			Expect(err).To(MatchError(internal.ErrInviteCodeTaken))
			var count int64
			Expect(db.Model(&userDatamodel.User{}).Where("email = ?", "second@globex.test").Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})

	Describe("Create", func() {
		It("maps a duplicate email to conflict", func() {
			Expect(repo.Create(ctx, newUser("dup@test.io"))).To(Succeed())

			err := repo.Create(ctx, newUser("dup@test.io"))

			Expect(err).To(MatchError(internal.ErrEmailTaken))
		})
	})

	Describe("UpdateProfile", func() {
		It("maps a duplicate email to conflict", func() {
			a := newUser("a@test.io")
			b := newUser("b@test.io")
			Expect(repo.Create(ctx, a)).To(Succeed())
			Expect(repo.Create(ctx, b)).To(Succeed())

			email := "a@test.io"
			Expect(repo.UpdateProfile(ctx, b.ID, nil, &email)).To(MatchError(internal.ErrEmailTaken))
		})

		It("reports missing users", func() {
			name := "x"
			Expect(repo.UpdateProfile(ctx, 999, &name, nil)).To(MatchError(internal.ErrUserNotFound))
		})
	})
})

package company_test

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/company"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockCompanyRepo struct {
	companies  map[int64]*company.Company
	identities map[int64]*coreUser.Identity
	members    []*company.Member
	updateErr  error
	activeSet  map[int64]bool
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{
		companies:  map[int64]*company.Company{},
		identities: map[int64]*coreUser.Identity{},
		activeSet:  map[int64]bool{},
	}
}

func (m *mockCompanyRepo) InviteCodeExists(_ context.Context, code string) (bool, error) {
	for _, c := range m.companies {
		if c.InviteCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCompanyRepo) GetByID(_ context.Context, id int64) (*company.Company, error) {
	if c, ok := m.companies[id]; ok {
		return c, nil
	}
	return nil, internal.ErrCompanyNotFound
}

func (m *mockCompanyRepo) GetByInviteCode(_ context.Context, code string) (*company.Company, error) {
	for _, c := range m.companies {
		if c.InviteCode == code {
			return c, nil
		}
	}
	return nil, internal.ErrCompanyNotFound
}

func (m *mockCompanyRepo) UpdateInviteCode(_ context.Context, companyID int64, code string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.companies[companyID].InviteCode = code
	return nil
}

func (m *mockCompanyRepo) ListMembers(_ context.Context, _ int64) ([]*company.Member, error) {
	return m.members, nil
}

func (m *mockCompanyRepo) GetMemberIdentity(_ context.Context, userID int64) (*coreUser.Identity, error) {
	if id, ok := m.identities[userID]; ok {
		return id, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockCompanyRepo) SetMemberActive(_ context.Context, userID int64, active bool) error {
	m.activeSet[userID] = active
	return nil
}

func ptr(v int64) *int64 { return &v }

var _ = Describe("Service", func() {
	var (
		repo    *mockCompanyRepo
		trail   *recordingTrail
		service *company.Service
		ctx     context.Context

		manager  coreUser.Identity
		employee coreUser.Identity
		solo     coreUser.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockCompanyRepo()
		repo.companies[1] = &company.Company{ID: 1, Name: "Acme", InviteCode: "ABC234", Settings: company.Settings{AutoApproveSolo: true}}
		trail = &recordingTrail{}
		service = company.NewService(repo, company.NewInviteGenerator(repo), trail, logger.Discard())

		manager = coreUser.Identity{UserID: 1, Role: coreUser.RoleManager, AccountType: coreUser.AccountCompany, CompanyID: ptr(1), IsActive: true}
		employee = coreUser.Identity{UserID: 2, Role: coreUser.RoleEmployee, AccountType: coreUser.AccountCompany, CompanyID: ptr(1), IsActive: true}
		solo = coreUser.Identity{UserID: 9, Role: coreUser.RoleManager, AccountType: coreUser.AccountSolo, IsActive: true}

		repo.identities[1] = &manager
		repo.identities[2] = &employee
	})

	Describe("GetMine", func() {
		It("shows the invite code to managers", func() {
			resp, err := service.GetMine(ctx, manager)

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Name).To(Equal("Acme"))
			Expect(resp.InviteCode).NotTo(BeNil())
			Expect(*resp.InviteCode).To(Equal("ABC234"))
		})

		It("hides the invite code from employees", func() {
			resp, err := service.GetMine(ctx, employee)

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.InviteCode).To(BeNil())
		})

		It("rejects callers without a company", func() {
			_, err := service.GetMine(ctx, solo)

			Expect(err).To(MatchError(internal.ErrNoCompany))
		})
	})

	Describe("SetMemberActive", func() {
		It("deactivates an employee and records the change", func() {
			// When
			resp, err := service.SetMemberActive(ctx, manager, 2, false)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsActive).To(BeFalse())
			Expect(repo.activeSet).To(HaveKeyWithValue(int64(2), false))

			entries := trail.Entries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(coreAudit.ActionMemberUpdated))
			Expect(entries[0].TargetType).To(Equal(coreAudit.TargetUser))
			Expect(entries[0].TargetID).To(Equal(int64(2)))
			Expect(entries[0].Metadata).To(HaveKeyWithValue("to", false))
		})

		It("refuses employees", func() {
			_, err := service.SetMemberActive(ctx, employee, 1, false)

			Expect(err).To(MatchError(internal.ErrManagerRequired))
			Expect(repo.activeSet).To(BeEmpty())
		})

		It("refuses to toggle the manager themselves", func() {
			_, err := service.SetMemberActive(ctx, manager, 1, false)

			appErr, ok := internal.AsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
			Expect(trail.Entries()).To(BeEmpty())
		})

		It("refuses members of another company", func() {
			repo.identities[5] = &coreUser.Identity{UserID: 5, Role: coreUser.RoleEmployee, AccountType: coreUser.AccountCompany, CompanyID: ptr(2), IsActive: true}

			_, err := service.SetMemberActive(ctx, manager, 5, false)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("reports unknown users as not found", func() {
			_, err := service.SetMemberActive(ctx, manager, 404, true)

			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("RegenerateInvite", func() {
		It("stores a fresh code and records it", func() {
			code, err := service.RegenerateInvite(ctx, manager)

			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(HaveLen(company.InviteCodeLength))
			Expect(repo.companies[1].InviteCode).To(Equal(code))
			Expect(trail.Entries()).To(HaveLen(1))
			Expect(trail.Entries()[0].Action).To(Equal(coreAudit.ActionInviteRegenerated))
		})

		It("passes through a unique violation as conflict", func() {
			repo.updateErr = internal.ErrInviteCodeTaken

			_, err := service.RegenerateInvite(ctx, manager)

			Expect(err).To(MatchError(internal.ErrInviteCodeTaken))
			Expect(trail.Entries()).To(BeEmpty())
		})

		It("is manager only", func() {
			_, err := service.RegenerateInvite(ctx, employee)

			Expect(err).To(MatchError(internal.ErrManagerRequired))
		})
	})

	Describe("Resolve", func() {
		It("normalises the typed code", func() {
			c, err := service.Resolve(ctx, " abc234 ")

			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).To(Equal(int64(1)))
		})

		It("turns an unknown code into invalid input", func() {
			_, err := service.Resolve(ctx, "ZZZZZZ")

			Expect(err).To(MatchError(internal.ErrInvalidInviteCode))
		})

		It("rejects codes of the wrong length without a lookup", func() {
			_, err := service.Resolve(ctx, "ABC")

			Expect(err).To(MatchError(internal.ErrInvalidInviteCode))
		})
	})

	Describe("ListMembers", func() {
		It("returns the repository rows for managers", func() {
			repo.members = []*company.Member{{ID: 1, Name: "Boss"}, {ID: 2, Name: "Worker"}}

			members, err := service.ListMembers(ctx, manager)

			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(2))
		})

		It("is refused to employees", func() {
			_, err := service.ListMembers(ctx, employee)

			Expect(errors.Is(err, internal.ErrManagerRequired)).To(BeTrue())
		})
	})
})

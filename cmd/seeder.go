package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const seedInviteCode = "DEMO42"

type seedUser struct {
	Email       string
	Name        string
	AccountType string
	Role        string
	InCompany   bool
}

var seedUsers = []seedUser{
	{Email: "manager@acme.test", Name: "Maya Manager", AccountType: "company", Role: "manager", InCompany: true},
	{Email: "erin@acme.test", Name: "Erin Employee", AccountType: "company", Role: "employee", InCompany: true},
	{Email: "eli@acme.test", Name: "Eli Employee", AccountType: "company", Role: "employee", InCompany: true},
	{Email: "sam@solo.test", Name: "Sam Solo", AccountType: "solo", Role: "employee"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long: `Seed a demo company (one manager, two employees, invite code DEMO42) and a
solo user. Every account uses the password "password".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = sqlDB.Close() }()

		db, err := initGorm(sqlDB)
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		return db.Transaction(func(tx *gorm.DB) error {
			if clearData {
				if err := tx.Exec("TRUNCATE audit_logs, expenses, users, companies RESTART IDENTITY CASCADE").Error; err != nil {
					return fmt.Errorf("clear data: %w", err)
				}
				fmt.Println("Cleared existing data")
			}
			return seed(tx, string(hash))
		})
	},
}

func seed(tx *gorm.DB, passwordHash string) error {
	ids := make(map[string]int64, len(seedUsers))
	for _, u := range seedUsers {
		var id int64
		err := tx.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row().Scan(&id)
		if err == nil {
			fmt.Println("user already exists:", u.Email)
			ids[u.Email] = id
			continue
		}
		if err := tx.Raw(
			"INSERT INTO users (email, name, password_hash, account_type, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, true, now(), now()) RETURNING id",
			u.Email, u.Name, passwordHash, u.AccountType, u.Role,
		).Row().Scan(&id); err != nil {
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
		ids[u.Email] = id
		fmt.Println("Seeded user:", u.Email)
	}

	managerID := ids[seedUsers[0].Email]
	var companyID int64
	err := tx.Raw("SELECT id FROM companies WHERE invite_code = ?", seedInviteCode).Row().Scan(&companyID)
	if err != nil {
		if err := tx.Raw(
			"INSERT INTO companies (name, created_by, invite_code, auto_approve_solo, created_at, updated_at) VALUES (?, ?, ?, true, now(), now()) RETURNING id",
			"Acme Travel", managerID, seedInviteCode,
		).Row().Scan(&companyID); err != nil {
			return fmt.Errorf("insert company: %w", err)
		}
		fmt.Println("Seeded company with invite code:", seedInviteCode)
	}

	for _, u := range seedUsers {
		if !u.InCompany {
			continue
		}
		if err := tx.Exec("UPDATE users SET company_id = ? WHERE id = ?", companyID, ids[u.Email]).Error; err != nil {
			return fmt.Errorf("attach %s: %w", u.Email, err)
		}
	}

	return seedExpenses(tx, companyID, ids)
}

func seedExpenses(tx *gorm.DB, companyID int64, ids map[string]int64) error {
	var count int64
	if err := tx.Raw("SELECT count(*) FROM expenses").Row().Scan(&count); err != nil {
		return fmt.Errorf("count expenses: %w", err)
	}
	if count > 0 {
		fmt.Println("expenses already present; skipping")
		return nil
	}

	claims := []struct {
		Owner    string
		Title    string
		Amount   string
		Date     string
		Category string
		Status   string
	}{
		{"erin@acme.test", "Airport taxi", "42.50", "2024-03-15", "transport", "pending"},
		{"erin@acme.test", "Client lunch", "86.20", "2024-03-12", "meals", "approved"},
		{"eli@acme.test", "Team offsite hotel", "310.00", "2024-03-02", "lodging", "approved"},
		{"eli@acme.test", "Keyboard", "129.99", "2024-02-27", "other", "rejected"},
		{"sam@solo.test", "Printer paper", "12.40", "2024-03-10", "other", "approved"},
	}
	managerID := ids[seedUsers[0].Email]

	for _, c := range claims {
		ownerID, ok := ids[c.Owner]
		if !ok {
			return errors.New("unknown seed owner " + c.Owner)
		}
		var company, validatedBy, validatedAt interface{}
		if c.Owner != "sam@solo.test" {
			company = companyID
			if c.Status != "pending" {
				validatedBy = managerID
			}
		} else {
			validatedBy = ownerID
		}
		if c.Status != "pending" {
			validatedAt = time.Now().UTC()
		}
		reason := ""
		if c.Status == "rejected" {
			reason = "personal purchase"
		}
		err := tx.Exec(
			`INSERT INTO expenses (user_id, company_id, title, amount, expense_date, category, status, validated_by, validated_at, rejection_reason, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now(), now())`,
			ownerID, company, c.Title, decimal.RequireFromString(c.Amount), c.Date, c.Category, c.Status, validatedBy, validatedAt, reason,
		).Error
		if err != nil {
			return fmt.Errorf("insert expense %q: %w", c.Title, err)
		}
	}
	fmt.Println("Seeded expenses:", len(claims))
	return nil
}

package repository

import (
	"time"

	"backend/internal/model"
)

// FallbackProvider supplies a fixed demo dataset. Read paths substitute it
// when the store is unreachable so pages stay renderable; the store
// diagnostic travels alongside as an advisory error.
type FallbackProvider struct{}

func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{}
}

func (p *FallbackProvider) Expenses() []model.Expense {
	now := time.Now()
	alice := p.UserByID(1)
	bob := p.UserByID(2)
	travel := &model.Category{CategoryID: 1, CategoryName: "Travel", IsActive: true}
	meals := &model.Category{CategoryID: 2, CategoryName: "Meals", IsActive: true}
	supplies := &model.Category{CategoryID: 3, CategoryName: "Supplies", IsActive: true}

	return []model.Expense{
		{
			ExpenseID: 1, UserID: 1, User: alice,
			CategoryID: 1, Category: travel,
			StatusID: model.StatusApproved, Status: statusRef(model.StatusApproved),
			AmountMinor: 12300, Currency: model.DefaultCurrency,
			ExpenseDate: now.AddDate(0, 0, -8),
			Description: ptr("Travel for meeting"),
			SubmittedAt: timePtr(now.AddDate(0, 0, -7)),
			ReviewedBy:  intPtr(2), Reviewer: bob,
			ReviewedAt: timePtr(now.AddDate(0, 0, -6)),
			CreatedAt:  now.AddDate(0, 0, -8),
		},
		{
			ExpenseID: 2, UserID: 1, User: alice,
			CategoryID: 3, Category: supplies,
			StatusID: model.StatusApproved, Status: statusRef(model.StatusApproved),
			AmountMinor: 100, Currency: model.DefaultCurrency,
			ExpenseDate: now.AddDate(0, 0, -6),
			Description: ptr("Office supplies"),
			SubmittedAt: timePtr(now.AddDate(0, 0, -5)),
			ReviewedBy:  intPtr(2), Reviewer: bob,
			ReviewedAt: timePtr(now.AddDate(0, 0, -4)),
			CreatedAt:  now.AddDate(0, 0, -6),
		},
		{
			ExpenseID: 3, UserID: 2, User: bob,
			CategoryID: 1, Category: travel,
			StatusID: model.StatusDraft, Status: statusRef(model.StatusDraft),
			AmountMinor: 23400, Currency: model.DefaultCurrency,
			ExpenseDate: now.AddDate(0, 0, -15),
			Description: ptr("Client visit travel"),
			CreatedAt:   now.AddDate(0, 0, -15),
		},
		{
			ExpenseID: 4, UserID: 1, User: alice,
			CategoryID: 1, Category: travel,
			StatusID: model.StatusSubmitted, Status: statusRef(model.StatusSubmitted),
			AmountMinor: 25000, Currency: model.DefaultCurrency,
			ExpenseDate: now.AddDate(0, 0, -21),
			Description: ptr("Client dinner meeting"),
			SubmittedAt: timePtr(now.AddDate(0, 0, -20)),
			CreatedAt:   now.AddDate(0, 0, -21),
		},
		{
			ExpenseID: 5, UserID: 1, User: alice,
			CategoryID: 2, Category: meals,
			StatusID: model.StatusApproved, Status: statusRef(model.StatusApproved),
			AmountMinor: 5500, Currency: model.DefaultCurrency,
			ExpenseDate: now.AddDate(0, 0, -30),
			Description: ptr("Team lunch"),
			SubmittedAt: timePtr(now.AddDate(0, 0, -29)),
			ReviewedBy:  intPtr(2), Reviewer: bob,
			ReviewedAt: timePtr(now.AddDate(0, 0, -28)),
			CreatedAt:  now.AddDate(0, 0, -30),
		},
	}
}

func (p *FallbackProvider) ExpenseByID(id int) *model.Expense {
	for _, e := range p.Expenses() {
		if e.ExpenseID == id {
			return &e
		}
	}
	return nil
}

func (p *FallbackProvider) PendingApprovals() []model.Expense {
	var pending []model.Expense
	for _, e := range p.Expenses() {
		if e.StatusID == model.StatusSubmitted {
			pending = append(pending, e)
		}
	}
	return pending
}

func (p *FallbackProvider) Categories() []model.Category {
	return []model.Category{
		{CategoryID: 1, CategoryName: "Travel", IsActive: true},
		{CategoryID: 2, CategoryName: "Meals", IsActive: true},
		{CategoryID: 3, CategoryName: "Supplies", IsActive: true},
		{CategoryID: 4, CategoryName: "Accommodation", IsActive: true},
		{CategoryID: 5, CategoryName: "Other", IsActive: true},
	}
}

func (p *FallbackProvider) Statuses() []model.ExpenseStatus {
	return []model.ExpenseStatus{
		{StatusID: model.StatusDraft, StatusName: "Draft"},
		{StatusID: model.StatusSubmitted, StatusName: "Submitted"},
		{StatusID: model.StatusApproved, StatusName: "Approved"},
		{StatusID: model.StatusRejected, StatusName: "Rejected"},
	}
}

func (p *FallbackProvider) Users() []model.User {
	bob := model.User{
		UserID: 2, UserName: "Bob Manager", Email: "bob.manager@example.co.uk",
		RoleID: model.RoleManager, Role: &model.Role{RoleID: model.RoleManager, RoleName: "Manager"},
		IsActive: true, CreatedAt: time.Now().AddDate(0, -12, 0),
	}
	alice := model.User{
		UserID: 1, UserName: "Alice Example", Email: "alice@example.co.uk",
		RoleID: model.RoleEmployee, Role: &model.Role{RoleID: model.RoleEmployee, RoleName: "Employee"},
		ManagerID: intPtr(2), Manager: &bob,
		IsActive: true, CreatedAt: time.Now().AddDate(0, -6, 0),
	}
	return []model.User{alice, bob}
}

func (p *FallbackProvider) UserByID(id int) *model.User {
	for _, u := range p.Users() {
		if u.UserID == id {
			return &u
		}
	}
	return nil
}

func (p *FallbackProvider) DashboardStats() model.DashboardStats {
	return model.DashboardStats{
		TotalExpenses:       10,
		PendingApprovals:    1,
		ApprovedAmountMinor: 51924,
		ApprovedCount:       6,
	}
}

func statusRef(id int) *model.ExpenseStatus {
	names := map[int]string{
		model.StatusDraft:     "Draft",
		model.StatusSubmitted: "Submitted",
		model.StatusApproved:  "Approved",
		model.StatusRejected:  "Rejected",
	}
	return &model.ExpenseStatus{StatusID: id, StatusName: names[id]}
}

func ptr(s string) *string        { return &s }
func intPtr(i int) *int           { return &i }
func timePtr(t time.Time) *time.Time { return &t }

/*
seed.go - System defaults and demo data

PURPOSE:
  Seeds the store with the system-default quick-brief templates every
  practitioner sees, and optionally a small demo book (matters, invoices,
  pro formas, payments, activity) so a fresh install renders a non-empty
  dashboard. Demo seeding is driven by the -seed flag on the server.

IDEMPOTENCY:
  Template seeding inserts under the (owner, category, value) unique key
  and treats duplicate errors as "already seeded". Demo records use fixed
  ids so re-running replaces rather than multiplies.

SEE ALSO:
  - cmd/server/main.go: Flag wiring
  - templates/ranker.go: Why system rows are immutable
*/
package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lexo/practice-engine/practice"
)

// systemDefaults are the out-of-the-box suggestion values.
var systemDefaults = map[practice.TemplateCategory][]string{
	practice.CategoryMatterTitle: {
		"Breach of Contract Opinion",
		"Urgent Interdict Application",
		"Commercial Lease Review",
	},
	practice.CategoryWorkType: {
		"Opinion",
		"Drafting",
		"Court Appearance",
		"Consultation",
	},
	practice.CategoryPracticeArea: {
		"Commercial Litigation",
		"Labour Law",
		"Family Law",
		"Administrative Law",
	},
	practice.CategoryUrgencyPreset: {
		"Same day",
		"Within 48 hours",
		"Within 7 days",
	},
	practice.CategoryIssueTemplate: {
		"Client seeks advice on enforceability of restraint of trade",
		"Client disputes invoice rendered by service provider",
	},
}

// SeedSystemTemplates inserts the system-default template rows. Rows that
// already exist are left untouched.
func SeedSystemTemplates(ctx context.Context, store practice.TemplateStore, clock practice.Clock) error {
	now := clock.Now()
	for _, category := range practice.TemplateCategories {
		for _, value := range systemDefaults[category] {
			_, err := store.InsertTemplate(ctx, practice.QuickBriefTemplate{
				PractitionerID: practice.SystemOwner,
				Category:       category,
				Value:          value,
				IsCustom:       false,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			if err != nil {
				if practice.IsDuplicate(err) {
					continue // already seeded
				}
				return err
			}
		}
	}
	return nil
}

// SeedDemo loads a small demo book for one practitioner: an urgent deadline,
// an overdue invoice, a pending pro forma, working matters with WIP, and a
// completed matter ready to invoice.
func SeedDemo(ctx context.Context, store practice.Store, clock practice.Clock, owner practice.PractitionerID) error {
	now := clock.Now()
	today := practice.DateOf(now)

	matters := []practice.Matter{
		{
			ID:                     "demo-matter-1",
			PractitionerID:         owner,
			Title:                  "Urgent Interdict Application",
			ClientName:             "Mokoena Attorneys",
			Status:                 practice.MatterActive,
			ExpectedCompletionDate: today,
			EstimatedFee:           decimal.NewFromInt(45000),
			WIPValue:               decimal.NewFromInt(30000),
			DateCommenced:          today.AddDays(-20),
			UpdatedAt:              now,
		},
		{
			ID:                     "demo-matter-2",
			PractitionerID:         owner,
			Title:                  "Commercial Lease Review",
			ClientName:             "Naidoo & Partners",
			Status:                 practice.MatterActive,
			ExpectedCompletionDate: today.AddDays(5),
			EstimatedFee:           decimal.NewFromInt(18000),
			WIPValue:               decimal.NewFromInt(4500),
			DateCommenced:          today.AddDays(-10),
			UpdatedAt:              now.AddDate(0, 0, -2),
		},
		{
			ID:             "demo-matter-3",
			PractitionerID: owner,
			Title:          "Restraint of Trade Opinion",
			ClientName:     "Van Wyk Inc",
			Status:         practice.MatterCompleted,
			EstimatedFee:   decimal.NewFromInt(25000),
			WIPValue:       decimal.NewFromInt(25000),
			DateCommenced:  today.AddDays(-60),
			DateClosed:     today.AddDays(-7),
			UpdatedAt:      now.AddDate(0, 0, -7),
		},
		{
			ID:             "demo-matter-4",
			PractitionerID: owner,
			Title:          "Unopposed Motion",
			ClientName:     "Dlamini Legal",
			Status:         practice.MatterNewRequest,
			EstimatedFee:   decimal.NewFromInt(8000),
			WIPValue:       decimal.Zero,
			UpdatedAt:      now.AddDate(0, 0, -1),
		},
	}
	for _, m := range matters {
		if err := store.SaveMatter(ctx, m); err != nil {
			return err
		}
	}

	invoices := []practice.Invoice{
		{
			ID:             "demo-invoice-1",
			PractitionerID: owner,
			MatterID:       "demo-matter-2",
			InvoiceNumber:  "INV-2001",
			TotalAmount:    decimal.NewFromInt(12000),
			AmountPaid:     decimal.NewFromInt(2000),
			Status:         practice.InvoiceSent,
			DueDate:        today.AddDays(-50),
			InvoiceDate:    today.AddDays(-80),
		},
		{
			ID:             "demo-invoice-2",
			PractitionerID: owner,
			InvoiceNumber:  "INV-2002",
			TotalAmount:    decimal.NewFromInt(6000),
			AmountPaid:     decimal.NewFromInt(6000),
			Status:         practice.InvoicePaid,
			DueDate:        today.AddDays(10),
			InvoiceDate:    today.AddDays(-15),
		},
	}
	for _, inv := range invoices {
		if err := store.SaveInvoice(ctx, inv); err != nil {
			return err
		}
	}

	if err := store.SaveProforma(ctx, practice.ProformaRequest{
		ID:             "demo-proforma-1",
		PractitionerID: owner,
		Title:          "Estimate: Arbitration Preparation",
		EstimatedFee:   decimal.NewFromInt(35000),
		Status:         practice.ProformaSent,
		CreatedAt:      now.AddDate(0, 0, -9),
	}); err != nil {
		return err
	}

	if err := store.SaveScopeAmendment(ctx, practice.ScopeAmendment{
		ID:             "demo-amendment-1",
		PractitionerID: owner,
		MatterID:       "demo-matter-1",
		Description:    "Extend scope to include replying affidavit",
		Status:         practice.AmendmentPending,
		CreatedAt:      now.AddDate(0, 0, -3),
	}); err != nil {
		return err
	}

	if err := store.SavePayment(ctx, practice.Payment{
		ID:             "demo-payment-1",
		PractitionerID: owner,
		InvoiceID:      "demo-invoice-2",
		Amount:         decimal.NewFromInt(6000),
		PaymentDate:    today.AddDays(-12),
	}); err != nil {
		return err
	}

	if err := store.SaveTimeEntry(ctx, practice.TimeEntry{
		ID:        "demo-time-1",
		MatterID:  "demo-matter-1",
		CreatedAt: now.AddDate(0, 0, -1),
	}); err != nil {
		return err
	}
	return store.SaveLoggedService(ctx, practice.LoggedService{
		ID:        "demo-service-1",
		MatterID:  "demo-matter-2",
		CreatedAt: now.AddDate(0, 0, -16),
	})
}

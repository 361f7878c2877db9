package app

import (
	"errors"
	"testing"

	"github.com/gpalras/bank-converter-pt/app/models"
)

func TestEstimatePages(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want int
	}{
		{"empty file", 0, 1},
		{"tiny file", 1024, 1},
		{"just under one page", 51199, 1},
		{"exactly one page", 51200, 1},
		{"100KB file", 100 * 1024, 2},
		{"large file", 1024 * 1024, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimatePages(tc.size); got != tc.want {
				t.Fatalf("EstimatePages(%d) = %d, want %d", tc.size, got, tc.want)
			}
		})
	}
}

func TestCheckAdmission(t *testing.T) {
	sub := models.Subscription{PagesLimit: 50, PagesUsedThisMonth: 0}

	cases := []struct {
		name  string
		used  int
		pages int
		admit bool
	}{
		{"fresh subscription", 0, 2, true},
		{"fills to boundary", 49, 1, true},
		{"exact limit", 0, 50, true},
		{"one over", 50, 1, false},
		{"way over", 10, 100, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub.PagesUsedThisMonth = tc.used
			err := CheckAdmission(sub, tc.pages)
			if tc.admit && err != nil {
				t.Fatalf("CheckAdmission(used=%d, pages=%d) = %v, want admit", tc.used, tc.pages, err)
			}
			if !tc.admit && err == nil {
				t.Fatalf("CheckAdmission(used=%d, pages=%d) should reject", tc.used, tc.pages)
			}
		})
	}
}

func TestCheckAdmissionDeficit(t *testing.T) {
	sub := models.Subscription{PagesLimit: 50, PagesUsedThisMonth: 49}

	err := CheckAdmission(sub, 3)
	var quotaErr QuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected QuotaError, got %v", err)
	}
	if quotaErr.Limit != 50 || quotaErr.Used != 49 || quotaErr.Requested != 3 {
		t.Fatalf("QuotaError fields mismatch: %+v", quotaErr)
	}
	if quotaErr.Deficit() != 2 {
		t.Fatalf("Deficit() = %d, want 2", quotaErr.Deficit())
	}
	if quotaErr.Error() == "" {
		t.Fatal("QuotaError message should not be empty")
	}
}

func TestCheckAdmissionNegativeEstimate(t *testing.T) {
	sub := models.Subscription{PagesLimit: 50, PagesUsedThisMonth: 50}
	if err := CheckAdmission(sub, -5); err != nil {
		t.Fatalf("negative estimate should be clamped to zero, got %v", err)
	}
}

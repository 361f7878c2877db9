package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/gpalras/bank-converter-pt/app/models"
)

func sampleTransactions() []models.StatementTransaction {
	irs := "IRS"
	return []models.StatementTransaction{
		{Date: "05/01/2025", Description: "Compra supermercado", Amount: 20.5, Type: "débito"},
		{Date: "10/01/2025", Description: "Salário", Amount: 1500, Type: "crédito", TaxCategory: &irs},
	}
}

func TestWriteTransactionsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := writeTransactionsCSV(path, sampleTransactions()); err != nil {
		t.Fatalf("writeTransactionsCSV error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}

	want := "data,descricao,valor,tipo,categoria_fiscal\n" +
		"05/01/2025,Compra supermercado,20.50,débito,\n" +
		"10/01/2025,Salário,1500.00,crédito,IRS\n"
	if string(content) != want {
		t.Fatalf("csv content = %q, want %q", content, want)
	}
}

func TestWriteTransactionsCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := writeTransactionsCSV(path, nil); err != nil {
		t.Fatalf("writeTransactionsCSV error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if string(content) != "data,descricao,valor,tipo,categoria_fiscal\n" {
		t.Fatalf("empty csv should be header-only, got %q", content)
	}
}

func TestWriteTransactionsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := writeTransactionsXLSX(path, sampleTransactions()); err != nil {
		t.Fatalf("writeTransactionsXLSX error = %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error = %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(exportSheetName)
	if err != nil {
		t.Fatalf("GetRows error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header + 2 transactions)", len(rows))
	}
	for i, name := range statementColumns {
		if rows[0][i] != name {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], name)
		}
	}
	if rows[1][1] != "Compra supermercado" || rows[2][4] != "IRS" {
		t.Fatalf("cell values mismatch: %v", rows)
	}
}

func TestWriteTransactionsXLSXHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := writeTransactionsXLSX(path, nil); err != nil {
		t.Fatalf("writeTransactionsXLSX error = %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error = %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(exportSheetName)
	if err != nil {
		t.Fatalf("GetRows error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
}

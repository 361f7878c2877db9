// Export artifact generation: one CSV and one Excel workbook per completed
// conversion, both with a stable column order.
package app

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/gpalras/bank-converter-pt/app/models"
)

// statementColumns is the stable artifact column order.
var statementColumns = []string{"data", "descricao", "valor", "tipo", "categoria_fiscal"}

const exportSheetName = "Transações"

func transactionRow(tx models.StatementTransaction) []string {
	category := ""
	if tx.TaxCategory != nil {
		category = *tx.TaxCategory
	}
	return []string{
		tx.Date,
		tx.Description,
		strconv.FormatFloat(tx.Amount, 'f', 2, 64),
		tx.Type,
		category,
	}
}

// writeTransactionsCSV writes the delimited artifact. An empty transaction
// list still produces a header-only file.
func writeTransactionsCSV(path string, txs []models.StatementTransaction) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(statementColumns); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := w.Write(transactionRow(tx)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// writeTransactionsXLSX writes the spreadsheet artifact.
func writeTransactionsXLSX(path string, txs []models.StatementTransaction) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", exportSheetName); err != nil {
		return err
	}

	for col, name := range statementColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(exportSheetName, cell, name); err != nil {
			return err
		}
	}

	for i, tx := range txs {
		row := transactionRow(tx)
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := wb.SetCellValue(exportSheetName, cell, value); err != nil {
				return err
			}
		}
	}

	return wb.SaveAs(path)
}

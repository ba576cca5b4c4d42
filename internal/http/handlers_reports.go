package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"receivables/internal/core"
	"receivables/internal/log"
)

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.reports.Customers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(customers).Write(w)
}

// handleCustomer looks the name up exactly; no trimming or case folding.
func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	detail, err := s.reports.Customer(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(detail).Write(w)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.reports.Cities(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(cities).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(d).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	NewResponse().Data(report).Write(w)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.reports.FilterOptions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(opts).Write(w)
}

func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (core.Report, bool) {
	q, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return core.Report{}, false
	}
	report, err := s.reports.Report(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return core.Report{}, false
	}
	return report, true
}

type customerCSVRow struct {
	Customer         string `csv:"customer_name"`
	Cities           string `csv:"cities"`
	Receivables      int    `csv:"receivable_count"`
	Payments         int    `csv:"payment_count"`
	TotalReceivables string `csv:"total_receivables"`
	TotalPaid        string `csv:"total_paid"`
	Outstanding      string `csv:"outstanding_balance"`
	CollectionRate   string `csv:"collection_rate"`
}

type cityCSVRow struct {
	City             string `csv:"city"`
	Customers        string `csv:"customers"`
	Receivables      int    `csv:"receivable_count"`
	Payments         int    `csv:"payment_count"`
	TotalReceivables string `csv:"total_receivables"`
	TotalPaid        string `csv:"total_paid"`
	Outstanding      string `csv:"outstanding_balance"`
	CollectionRate   string `csv:"collection_rate"`
}

// handleCustomersCSV exports the customer performance rows of the report
// selected by the query string.
func (s *Server) handleCustomersCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	rows := make([]customerCSVRow, 0, len(report.Customers))
	for _, c := range report.Customers {
		rows = append(rows, customerCSVRow{
			Customer:         c.CustomerName,
			Cities:           strings.Join(c.Cities, "; "),
			Receivables:      c.ReceivableCount,
			Payments:         c.PaymentCount,
			TotalReceivables: c.TotalReceivables.StringFixed(2),
			TotalPaid:        c.TotalPaid.StringFixed(2),
			Outstanding:      c.OutstandingBalance.StringFixed(2),
			CollectionRate:   formatRate(c.CollectionRate),
		})
	}
	s.writeCSV(w, r, "customers.csv", &rows)
}

func (s *Server) handleCitiesCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	rows := make([]cityCSVRow, 0, len(report.Cities))
	for _, c := range report.Cities {
		rows = append(rows, cityCSVRow{
			City:             c.City,
			Customers:        strings.Join(c.Customers, "; "),
			Receivables:      c.ReceivableCount,
			Payments:         c.PaymentCount,
			TotalReceivables: c.TotalReceivables.StringFixed(2),
			TotalPaid:        c.TotalPaid.StringFixed(2),
			Outstanding:      c.OutstandingBalance.StringFixed(2),
			CollectionRate:   formatRate(c.CollectionRate),
		})
	}
	s.writeCSV(w, r, "cities.csv", &rows)
}

// writeCSV renders into a buffer first so a marshal failure can still be
// reported as JSON.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string, rows any) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		InternalServerError(err.Error()).Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 2, 64)
}

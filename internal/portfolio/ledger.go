package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zenwen/etfadvisor/internal/advisor"
)

// Entry is one issued decision, as persisted in the ledger.
type Entry struct {
	Date      string   `json:"date"`
	FundCode  string   `json:"fund_code"`
	FundName  string   `json:"fund_name"`
	Action    string   `json:"action"`
	AmountCNY int64    `json:"amount_cny"`
	Risk      string   `json:"risk"`
	Reasons   []string `json:"reasons"`
}

// Ledger is an append-only JSON record of every decision the advisor
// issued. Entries are never rewritten: a corrected decision gets a new
// entry on a later run.
type Ledger struct {
	mu   sync.Mutex
	path string
}

func NewLedger(dataDir string) *Ledger {
	return &Ledger{path: filepath.Join(dataDir, "ledger.json")}
}

// Append records every decided fund of a run. Skipped funds (no data,
// failed processing) leave no trace in the ledger.
func (l *Ledger) Append(r *advisor.Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	date := r.Date.Format("2006-01-02")
	for _, rec := range r.Records {
		if rec.Skipped() {
			continue
		}
		entries = append(entries, Entry{
			Date:      date,
			FundCode:  rec.Fund.Code,
			FundName:  rec.Fund.Name,
			Action:    rec.Decision.Label(),
			AmountCNY: rec.Decision.AmountCNY,
			Risk:      rec.Decision.Risk,
			Reasons:   rec.Decision.Reasons,
		})
	}
	return l.save(entries)
}

// Entries returns the full ledger, oldest first.
func (l *Ledger) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// InvestedOn sums the buy-side amounts recorded for one calendar day.
func (l *Ledger) InvestedOn(day time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return 0, err
	}
	date := day.Format("2006-01-02")
	var total int64
	for _, e := range entries {
		if e.Date == date {
			total += e.AmountCNY
		}
	}
	return total, nil
}

func (l *Ledger) load() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *Ledger) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return os.Rename(tmp, l.path)
}

package nse

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Stock is one entry in the symbol directory.
type Stock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// popularStocks seeds the directory until a persisted cache exists.
var popularStocks = []string{
	"RELIANCE", "TCS", "INFY", "HDFC", "LT", "HCLTECH", "WIPRO", "MARUTI",
	"ICICIBANK", "SBIN", "ITC", "SUNPHARMA", "ADANIPORTS", "ASIANPAINT",
	"TITAN", "POWERGRID", "NTPC", "COALINDIA", "JSWSTEEL", "HINDALCO",
	"DRREDDY", "BHARTIARTL", "ONGC", "TATAMOTORS", "TATASTEEL", "TECHM",
	"ULTRACEMCO", "NESTLEIND", "HEROMOTOCORP", "BAJAJFINSV",
}

// Directory is a persisted symbol -> company-name cache. It is a working
// convenience, not a source of truth: lookups fall back to the symbol itself
// and a load failure just starts the directory empty.
type Directory struct {
	path string

	mu     sync.RWMutex
	stocks []Stock
}

// LoadDirectory reads the persisted cache at path. A missing or unreadable
// file yields the popular-stocks fallback list.
func LoadDirectory(path string) *Directory {
	d := &Directory{path: path}

	data, err := os.ReadFile(path)
	if err == nil {
		var stocks []Stock
		if err := json.Unmarshal(data, &stocks); err == nil && len(stocks) > 0 {
			d.stocks = stocks
			return d
		}
	}

	d.stocks = make([]Stock, 0, len(popularStocks))
	for _, s := range popularStocks {
		d.stocks = append(d.stocks, Stock{Symbol: s, Name: s})
	}
	return d
}

// CompanyName resolves a symbol to its company name, falling back to the
// symbol when unknown.
func (d *Directory) CompanyName(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.stocks {
		if s.Symbol == upper {
			return s.Name
		}
	}
	return upper
}

// Put inserts or updates a directory entry. It reports whether the entry
// actually changed, so callers can skip persisting an unchanged directory.
func (d *Directory) Put(symbol, name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if upper == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.stocks {
		if d.stocks[i].Symbol == upper {
			if d.stocks[i].Name == name {
				return false
			}
			d.stocks[i].Name = name
			return true
		}
	}
	d.stocks = append(d.stocks, Stock{Symbol: upper, Name: name})
	return true
}

// Search returns up to 100 stocks whose symbol or name contains the query.
// Queries shorter than two characters return nothing.
func (d *Directory) Search(query string) []Stock {
	term := strings.ToLower(strings.TrimSpace(query))
	if len(term) < 2 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var matches []Stock
	for _, s := range d.stocks {
		if strings.Contains(strings.ToLower(s.Symbol), term) ||
			strings.Contains(strings.ToLower(s.Name), term) {
			matches = append(matches, s)
			if len(matches) >= 100 {
				break
			}
		}
	}
	return matches
}

// Save persists the directory to its backing file.
func (d *Directory) Save() error {
	d.mu.RLock()
	data, err := json.MarshalIndent(d.stocks, "", "  ")
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal symbol directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", d.path, err)
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write symbol directory %s: %w", d.path, err)
	}
	return nil
}

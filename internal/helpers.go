package internal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/deckarep/golang-set"
)

func unique(arr []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range arr {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

var space = regexp.MustCompile(`\s+`)

func pluralize(count int, singular string) string {
	if count != 1 {
		if strings.HasSuffix(singular, "ch") {
			singular = singular + "es"
		} else {
			singular = singular + "s"
		}
	}
	return fmt.Sprintf("%d %s", count, singular)
}

// rowColumns lists the columns found in rows, daily columns first in their
// usual order, then the rest sorted.
func rowColumns(rows []Row) []string {
	var other []string
	present := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			present[name] = true
			other = append(other, name)
		}
	}

	columns := []string{}
	for _, name := range dailyColumns {
		if present[name] {
			columns = append(columns, name)
			delete(present, name)
		}
	}

	other = unique(other)
	sort.Strings(other)
	for _, name := range other {
		if present[name] {
			columns = append(columns, name)
		}
	}
	return columns
}

func checkColumns(columns []string, valid []string) error {
	validSet := mapset.NewSet()
	for _, name := range valid {
		validSet.Add(name)
	}

	for _, name := range columns {
		if !validSet.Contains(name) {
			return fmt.Errorf("Invalid column: %s. Valid columns are %s", name, strings.Join(valid, ", "))
		}
	}
	return nil
}

package storage

import "testing"

func TestValidateNamespace(t *testing.T) {
	t.Parallel()

	valid := []string{"versions", "changes", "kv_2"}
	for _, ns := range valid {
		if err := ValidateNamespace(ns); err != nil {
			t.Errorf("ValidateNamespace(%q) error = %v", ns, err)
		}
	}
	invalid := []string{"", "Versions", "2changes", "a/b", "drop table;"}
	for _, ns := range invalid {
		if err := ValidateNamespace(ns); err == nil {
			t.Errorf("ValidateNamespace(%q) expected error", ns)
		}
	}
}

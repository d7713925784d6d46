package cmd

import "testing"

func TestValidSetName(t *testing.T) {
	for _, good := range []string{"interior", "boundary", "initial", "all"} {
		if err := validSetName(good); err != nil {
			t.Errorf("set [%s] should be accepted: %s", good, err)
		}
	}
	if err := validSetName("exterior"); err == nil {
		t.Errorf("expected an error for an unknown set name")
	}
}

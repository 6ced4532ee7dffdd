// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSnapshotsSubcommands verifies the snapshot management commands
// are registered with their flags and argument checks.
func TestSnapshotsSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range snapshotsCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "list")
	assert.Contains(t, names, "delete")

	del, _, err := snapshotsCmd.Find([]string{"delete"})
	require.NoError(t, err)
	assert.NotNil(t, del.Flags().Lookup("db"))
	assert.Error(t, del.Args(del, nil), "delete requires a snapshot id")
}

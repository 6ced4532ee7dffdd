// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package atlas

import "errors"

// Sentinel errors for the atlas service layer.
var (
	// ErrNoScan indicates no scan has completed yet; there is no
	// published graph to query.
	ErrNoScan = errors.New("no completed scan")

	// ErrScanInProgress indicates a scan is already running. Scans are
	// serialized; callers should retry after the current one finishes.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrSnapshotsDisabled indicates snapshot persistence is not
	// configured.
	ErrSnapshotsDisabled = errors.New("snapshots disabled")
)

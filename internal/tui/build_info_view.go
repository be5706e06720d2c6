// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"fmt"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

func renderBuildInfoWindow(info models.AppBuildInfo, backupDir string) string {
	body := fmt.Sprintf("%-12s Spendlytics\n%-12s %s\n%-12s %s\n%-12s %s\n%-12s %s",
		"Application:",
		"Version:", info.BuildVersion(),
		"Date:", info.BuildDate(),
		"Commit:", info.BuildCommit(),
		"Backups:", backupDir,
	)
	return renderPage("ABOUT", body, "esc: back")
}

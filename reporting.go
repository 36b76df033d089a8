// nightfoxfilms-sub014: content-addressed photo/video/document import
// pipeline for location archives, with HTML reporting.
package main

import (
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

const fileSizeUnits = "KMGTPE"

const reportCSS = `    <style>
        :root {
            --background: 0 0% 100%;
            --foreground: 222.2 84% 4.9%;
            --card: 0 0% 100%;
            --card-foreground: 222.2 84% 4.9%;
            --popover: 0 0% 100%;
            --popover-foreground: 222.2 84% 4.9%;
            --primary: 222.2 47.4% 11.2%;
            --primary-foreground: 210 40% 98%;
            --secondary: 210 40% 96%;
            --secondary-foreground: 222.2 84% 4.9%;
            --muted: 210 40% 96%;
            --muted-foreground: 215.4 16.3% 46.9%;
            --accent: 210 40% 96%;
            --accent-foreground: 222.2 84% 4.9%;
            --destructive: 0 84.2% 60.2%;
            --destructive-foreground: 210 40% 98%;
            --border: 214.3 31.8% 91.4%;
            --input: 214.3 31.8% 91.4%;
            --ring: 222.2 84% 4.9%;
            --radius: 0.5rem;
        }

        * {
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            line-height: 1.5;
            color: hsl(var(--foreground));
            background-color: hsl(var(--background));
            margin: 0;
            padding: 20px;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
        }

        h1 {
            font-size: 2.25rem;
            font-weight: 700;
            margin-bottom: 2rem;
            color: hsl(var(--foreground));
        }

        .session-meta {
            color: hsl(var(--muted-foreground));
            margin-bottom: 1.5rem;
        }

        .controls {
            display: flex;
            gap: 1rem;
            margin-bottom: 1rem;
            flex-wrap: wrap;
            align-items: center;
        }

        .search-input {
            flex: 1;
            min-width: 200px;
            padding: 0.5rem 0.75rem;
            border: 1px solid hsl(var(--border));
            border-radius: var(--radius);
            background: hsl(var(--background));
            color: hsl(var(--foreground));
            font-size: 0.875rem;
        }

        .search-input:focus {
            outline: none;
            ring: 2px;
            ring-color: hsl(var(--ring));
            border-color: hsl(var(--ring));
        }

        .filter-buttons {
            display: flex;
            gap: 0.5rem;
            flex-wrap: wrap;
        }

        .filter-btn {
            padding: 0.375rem 0.75rem;
            border: 1px solid hsl(var(--border));
            border-radius: var(--radius);
            background: hsl(var(--secondary));
            color: hsl(var(--secondary-foreground));
            font-size: 0.875rem;
            cursor: pointer;
            transition: all 0.2s;
        }

        .filter-btn:hover {
            background: hsl(var(--accent));
        }

        .filter-btn.active {
            background: hsl(var(--primary));
            color: hsl(var(--primary-foreground));
        }

        .table-container {
            border: 1px solid hsl(var(--border));
            border-radius: var(--radius);
            overflow: hidden;
            background: hsl(var(--card));
        }

        table {
            width: 100%;
            border-collapse: collapse;
        }

        .table-header {
            background: hsl(var(--muted));
            position: sticky;
            top: 0;
            z-index: 10;
        }

        .table-body {
            max-height: 600px;
            overflow-y: auto;
        }

        th, td {
            text-align: left;
            padding: 0.75rem;
            border-bottom: 1px solid hsl(var(--border));
        }

        th {
            font-weight: 600;
            color: hsl(var(--foreground));
            cursor: pointer;
            user-select: none;
            white-space: nowrap;
        }

        th:hover {
            background: hsl(var(--accent));
        }

        .sort-indicator {
            margin-left: 0.5rem;
            opacity: 0.5;
        }

        .sort-indicator.active {
            opacity: 1;
        }

        td {
            color: hsl(var(--foreground));
        }

        .file-path {
            max-width: 250px;
            overflow: hidden;
            text-overflow: ellipsis;
            white-space: nowrap;
            word-break: break-all;
        }

        .file-path a {
            color: hsl(var(--primary));
            text-decoration: none;
        }

        .file-path a:hover {
            text-decoration: underline;
        }

        .status-badge {
            display: inline-flex;
            align-items: center;
            padding: 0.25rem 0.5rem;
            border-radius: calc(var(--radius) - 2px);
            font-size: 0.75rem;
            font-weight: 500;
            white-space: nowrap;
        }

        .status-copied {
            background: hsl(142 76% 36% / 0.1);
            color: hsl(142 76% 36%);
        }

        .status-duplicate {
            background: hsl(221 83% 53% / 0.1);
            color: hsl(221 83% 53%);
        }

        .status-error {
            background: hsl(var(--destructive) / 0.1);
            color: hsl(var(--destructive));
        }

        .file-size {
            font-variant-numeric: tabular-nums;
            text-align: right;
        }

        tr:hover {
            background: hsl(var(--muted) / 0.5);
        }

        .hidden {
            display: none !important;
        }

        .report-header {
            text-align: center;
            margin-bottom: 2rem;
            padding: 1rem;
        }

        .summary-badges {
            display: flex;
            flex-direction: column;
            gap: 0.75rem;
            margin: 1.5rem 0;
        }

        .badge-row {
            display: flex;
            justify-content: center;
            gap: 0.75rem;
            flex-wrap: wrap;
        }

        .summary-badge {
            display: inline-flex;
            flex-direction: column;
            align-items: center;
            padding: 0.75rem;
            border-radius: var(--radius);
            min-width: 80px;
            text-align: center;
            font-weight: 500;
            border: 1px solid;
        }

        .badge-label {
            font-size: 0.75rem;
            opacity: 0.8;
            margin-bottom: 0.25rem;
        }

        .badge-value {
            font-size: 1.1rem;
            font-weight: 700;
        }

        .badge-total {
            background: hsl(210 40% 96%);
            color: hsl(222.2 84% 4.9%);
            border-color: hsl(214.3 31.8% 91.4%);
        }

        .badge-data {
            background: hsl(221 83% 53% / 0.1);
            color: hsl(221 83% 53%);
            border-color: hsl(221 83% 53% / 0.3);
        }

        .badge-time {
            background: hsl(262 83% 58% / 0.1);
            color: hsl(262 83% 58%);
            border-color: hsl(262 83% 58% / 0.3);
        }

        .badge-copied {
            background: hsl(142 76% 36% / 0.1);
            color: hsl(142 76% 36%);
            border-color: hsl(142 76% 36% / 0.3);
        }

        .badge-duplicate {
            background: hsl(221 83% 53% / 0.1);
            color: hsl(221 83% 53%);
            border-color: hsl(221 83% 53% / 0.3);
        }

        .badge-error {
            background: hsl(var(--destructive) / 0.1);
            color: hsl(var(--destructive));
            border-color: hsl(var(--destructive) / 0.3);
        }

        @media (max-width: 768px) {
            .controls {
                flex-direction: column;
                align-items: stretch;
            }

            .search-input {
                min-width: unset;
            }

            .file-path {
                max-width: 150px;
            }

            th, td {
                padding: 0.5rem;
                font-size: 0.875rem;
            }

            .badge-row {
                gap: 0.5rem;
            }

            .summary-badge {
                min-width: 70px;
                padding: 0.5rem;
            }

            .badge-label {
                font-size: 0.7rem;
            }

            .badge-value {
                font-size: 1rem;
            }
        }
    </style>`

const reportJavaScript = `        <script>
            document.addEventListener('DOMContentLoaded', function() {
                const searchInput = document.getElementById('searchInput');
                const filterButtons = document.querySelectorAll('.filter-btn');
                const tableBody = document.getElementById('fileTableBody');
                const sortHeaders = document.querySelectorAll('th[data-sort]');

                let currentFilter = 'all';
                let currentSort = { column: null, direction: 'asc' };

                searchInput.addEventListener('input', function() {
                    filterAndSearch();
                });

                filterButtons.forEach(btn => {
                    btn.addEventListener('click', function() {
                        filterButtons.forEach(b => b.classList.remove('active'));
                        this.classList.add('active');
                        currentFilter = this.dataset.filter;
                        filterAndSearch();
                    });
                });

                sortHeaders.forEach(header => {
                    header.addEventListener('click', function() {
                        const column = this.dataset.sort;

                        if (currentSort.column === column) {
                            currentSort.direction = currentSort.direction === 'asc' ? 'desc' : 'asc';
                        } else {
                            currentSort.column = column;
                            currentSort.direction = 'asc';
                        }

                        updateSortIndicators();
                        sortTable();
                    });
                });

                function filterAndSearch() {
                    const searchTerm = searchInput.value.toLowerCase();
                    const rows = tableBody.querySelectorAll('tr');

                    rows.forEach(row => {
                        const status = row.dataset.status;
                        const path = row.dataset.path.toLowerCase();

                        const matchesFilter = currentFilter === 'all' || status === currentFilter;
                        const matchesSearch = searchTerm === '' || path.includes(searchTerm);

                        row.style.display = matchesFilter && matchesSearch ? '' : 'none';
                    });
                }

                function updateSortIndicators() {
                    sortHeaders.forEach(header => {
                        const indicator = header.querySelector('.sort-indicator');
                        if (header.dataset.sort === currentSort.column) {
                            indicator.textContent = currentSort.direction === 'asc' ? '↑' : '↓';
                            indicator.classList.add('active');
                        } else {
                            indicator.textContent = '↕';
                            indicator.classList.remove('active');
                        }
                    });
                }

                function sortTable() {
                    const rows = Array.from(tableBody.querySelectorAll('tr'));

                    rows.sort((a, b) => {
                        let aVal, bVal;

                        switch(currentSort.column) {
                            case 'path':
                                aVal = a.dataset.path;
                                bVal = b.dataset.path;
                                break;
                            case 'status':
                                aVal = a.dataset.status;
                                bVal = b.dataset.status;
                                break;
                            case 'archive':
                                aVal = a.cells[2].textContent;
                                bVal = b.cells[2].textContent;
                                break;
                            case 'size':
                                aVal = parseSizeForSort(a.cells[3].textContent);
                                bVal = parseSizeForSort(b.cells[3].textContent);
                                break;
                            case 'details':
                                aVal = a.cells[4].textContent;
                                bVal = b.cells[4].textContent;
                                break;
                            default:
                                return 0;
                        }

                        if (currentSort.column === 'size') {
                            return currentSort.direction === 'asc' ? aVal - bVal : bVal - aVal;
                        }

                        const comparison = aVal.localeCompare(bVal);
                        return currentSort.direction === 'asc' ? comparison : -comparison;
                    });

                    rows.forEach(row => tableBody.appendChild(row));
                }

                function parseSizeForSort(sizeText) {
                    if (sizeText === '-') return 0;

                    const matches = sizeText.match(/^([\d.]+)\s*([KMGTPE]?)B$/);
                    if (!matches) return 0;

                    const value = parseFloat(matches[1]);
                    const unit = matches[2];

                    const multipliers = { '': 1, 'K': 1024, 'M': 1024*1024, 'G': 1024*1024*1024, 'T': 1024*1024*1024*1024 };
                    return value * (multipliers[unit] || 1);
                }
            });
        </script>`

// writeBadge writes a single summary badge with the given type, label, and value.
func writeBadge(f *os.File, badgeType, label, value string) {
	fmt.Fprintf(f, `
                <span class="summary-badge badge-%s">
                    <span class="badge-label">%s</span>
                    <span class="badge-value">%s</span>
                </span>`, badgeType, label, value)
}

// rowStatus classifies a FinalizedFile into one of the report's three
// filter buckets: copied (fully finalized), duplicate, or error (any
// failure recorded at any stage).
func rowStatus(f model.FinalizedFile) string {
	if f.IsDuplicate {
		return "duplicate"
	}
	if f.HashError != "" || f.CopyError != "" || f.ValidationError != "" || f.FinalizeError != "" || !f.IsValid {
		return "error"
	}
	return "copied"
}

func rowDetails(f model.FinalizedFile) string {
	switch {
	case f.FinalizeError != "":
		return f.FinalizeError
	case f.ValidationError != "":
		return f.ValidationError
	case f.CopyError != "":
		return f.CopyError
	case f.HashError != "":
		return f.HashError
	case f.IsDuplicate:
		return "duplicate of existing file in " + f.DuplicateIn
	default:
		return "finalized"
	}
}

func writeSummaryBadges(f *os.File, result model.ImportResult) {
	total, copiedBytes, finalized, duplicates, errs := 0, int64(0), 0, 0, 0
	if result.FinalizationResult != nil {
		for _, file := range result.FinalizationResult.Files {
			total++
			switch rowStatus(file) {
			case "copied":
				finalized++
				copiedBytes += file.BytesCopied
			case "duplicate":
				duplicates++
			case "error":
				errs++
			}
		}
	}

	f.WriteString(`
        <div class="summary-badges">
            <div class="badge-row">`)
	writeBadge(f, "total", "Total Files", fmt.Sprintf("%d", total))
	writeBadge(f, "data", "Data Size", formatFileSize(copiedBytes))
	writeBadge(f, "copied", "Finalized", fmt.Sprintf("%d", finalized))
	writeBadge(f, "duplicate", "Duplicates", fmt.Sprintf("%d", duplicates))
	writeBadge(f, "error", "Errors", fmt.Sprintf("%d", errs))
	f.WriteString(`
            </div>
        </div>`)
}

func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatFileSize(bytes int64) string {
	if bytes == 0 {
		return "-"
	}
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), fileSizeUnits[exp])
}

// writeHTMLReport generates a searchable, filterable, sortable HTML report
// of one import session's outcome across all five stages.
func writeHTMLReport(path string, result model.ImportResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	writeHTMLHeader(f, result)
	writeFileTable(f, result)
	f.WriteString("</body></html>")
	return nil
}

func writeHTMLHeader(f *os.File, result model.ImportResult) {
	f.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>import report</title>
`)
	f.WriteString(reportCSS)
	f.WriteString(`
</head>
<body>
    <div class="container">
        <div class="report-header">
            <h1>Import Report</h1>`)

	fmt.Fprintf(f, `
            <p class="session-meta">Session %s &middot; %s</p>`,
		html.EscapeString(result.SessionID), html.EscapeString(string(result.Status)))
	if result.Error != "" {
		fmt.Fprintf(f, `
            <p class="session-meta">%s</p>`, html.EscapeString(result.Error))
	}

	writeSummaryBadges(f, result)

	f.WriteString(`
        </div>`)
}

func writeFileTable(f *os.File, result model.ImportResult) {
	f.WriteString(`
        <div class="controls">
            <input type="text" class="search-input" placeholder="Search files..." id="searchInput">
            <div class="filter-buttons">
                <button class="filter-btn active" data-filter="all">All</button>
                <button class="filter-btn" data-filter="copied">Finalized</button>
                <button class="filter-btn" data-filter="duplicate">Duplicates</button>
                <button class="filter-btn" data-filter="error">Errors</button>
            </div>
        </div>

        <div class="table-container">
            <table>
                <thead class="table-header">
                    <tr>
                        <th data-sort="path">File Path<span class="sort-indicator">↕</span></th>
                        <th data-sort="status">Status<span class="sort-indicator">↕</span></th>
                        <th data-sort="archive">Archive Path<span class="sort-indicator">↕</span></th>
                        <th data-sort="size">Size<span class="sort-indicator">↕</span></th>
                        <th data-sort="details">Details<span class="sort-indicator">↕</span></th>
                    </tr>
                </thead>
                <tbody class="table-body" id="fileTableBody">`)

	if result.FinalizationResult != nil {
		for _, file := range result.FinalizationResult.Files {
			status := rowStatus(file)
			writeTableRow(f, file.OriginalPath, status, file.ArchivePath, formatFileSize(file.BytesCopied), rowDetails(file))
		}
	}

	f.WriteString(`                </tbody>
            </table>
        </div>`)

	f.WriteString(reportJavaScript)
	f.WriteString(`
    </div>`)
}

func writeTableRow(f *os.File, srcPath, status, archivePath, size, details string) {
	escapedSrc := html.EscapeString(srcPath)
	escapedArchive := html.EscapeString(archivePath)
	escapedDetails := html.EscapeString(details)

	var srcCell, archiveCell string
	if srcPath != "" {
		srcCell = fmt.Sprintf(`<a href="file://%s" title="Open %s">%s</a>`, escapedSrc, escapedSrc, escapedSrc)
	} else {
		srcCell = escapedSrc
	}
	if archivePath != "" {
		archiveCell = fmt.Sprintf(`<a href="file://%s" title="Open %s">%s</a>`, escapedArchive, escapedArchive, escapedArchive)
	} else {
		archiveCell = escapedArchive
	}

	fmt.Fprintf(f, `
                    <tr data-status="%s" data-path="%s">
                        <td class="file-path">%s</td>
                        <td><span class="status-badge status-%s">%s</span></td>
                        <td class="file-path">%s</td>
                        <td class="file-size">%s</td>
                        <td>%s</td>
                    </tr>`,
		status, strings.ToLower(escapedSrc),
		srcCell,
		status, strings.Title(status),
		archiveCell,
		size,
		escapedDetails)
}

package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/partner-cli/internal/model"
)

// SourceOptions configures ReadPartners.
type SourceOptions struct {
	// Sheet names the XLSX worksheet to read. Empty reads the first sheet.
	Sheet string
}

// headerAliases maps normalized spreadsheet headers to partner columns.
var headerAliases = map[string]string{
	"id":                    "id",
	"name":                  "name",
	"business_name":         "name",
	"partner_name":          "name",
	"partner_type":          string(model.FieldCategory),
	"type":                  string(model.FieldCategory),
	"category":              string(model.FieldCategory),
	"area":                  string(model.FieldZone),
	"zone":                  string(model.FieldZone),
	"address":               string(model.FieldAddress),
	"notes":                 "notes",
	"services_provided":     "services_provided",
	"services":              "services_provided",
	"proximity_to_location": "proximity_to_location",
	"proximity":             "proximity_to_location",
	"website":               string(model.FieldWebsite),
	"url":                   string(model.FieldWebsite),
	"instagram_handle":      string(model.FieldInstagramHandle),
	"instagram":             string(model.FieldInstagramHandle),
	"facebook_url":          string(model.FieldFacebookURL),
	"facebook":              string(model.FieldFacebookURL),
	"tiktok_handle":         string(model.FieldTikTokHandle),
	"tiktok":                string(model.FieldTikTokHandle),
	"youtube_url":           string(model.FieldYouTubeURL),
	"youtube":               string(model.FieldYouTubeURL),
}

// ReadPartners loads partner rows from src, a local path or an http(s) URL.
// The format follows the extension: .csv, .tsv or .xlsx. The first row is
// the header; a "name" column is required and unknown columns are ignored.
func ReadPartners(ctx context.Context, f Fetcher, src string, opts SourceOptions) ([]model.Partner, error) {
	local := src
	if isRemote(src) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no downloader configured for %s", src)
		}
		tmp, err := os.MkdirTemp("", "partner-import-*")
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create temp dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck

		u, err := url.Parse(src)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: parse %s", src)
		}
		local = filepath.Join(tmp, "import"+path.Ext(u.Path))
		if _, err := f.DownloadToFile(ctx, src, local); err != nil {
			return nil, eris.Wrapf(err, "fetcher: download %s", src)
		}
	}

	var rowCh <-chan []string
	var errCh <-chan error

	switch ext := strings.ToLower(filepath.Ext(local)); ext {
	case ".csv", ".tsv":
		file, err := os.Open(local)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", src)
		}
		defer file.Close() //nolint:errcheck
		csvOpts := CSVOptions{TrimSpace: true, LazyQuotes: true}
		if ext == ".tsv" {
			csvOpts.Delimiter = '\t'
		}
		rowCh, errCh = StreamCSV(ctx, file, csvOpts)
	case ".xlsx":
		rowCh, errCh = StreamXLSX(ctx, local, XLSXOptions{SheetName: opts.Sheet})
	default:
		return nil, eris.Errorf("fetcher: unsupported import format %q (want .csv, .tsv or .xlsx)", ext)
	}

	partners, convErr := rowsToPartners(rowCh)
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read %s", src)
		}
	}
	if convErr != nil {
		return nil, eris.Wrapf(convErr, "fetcher: read %s", src)
	}

	zap.L().Info("read partner import",
		zap.String("source", src),
		zap.Int("partners", len(partners)),
	)
	return partners, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// rowsToPartners consumes every row so the producer goroutine can finish,
// even when the header is unusable.
func rowsToPartners(rowCh <-chan []string) ([]model.Partner, error) {
	var (
		columns   []string
		partners  []model.Partner
		headerErr error
		seen      bool
	)
	for row := range rowCh {
		if headerErr != nil {
			continue
		}
		if !seen {
			seen = true
			columns, headerErr = mapHeader(row)
			continue
		}
		if p, ok := rowToPartner(columns, row); ok {
			partners = append(partners, p)
		}
	}
	if headerErr != nil {
		return nil, headerErr
	}
	if !seen {
		return nil, eris.New("empty file")
	}
	return partners, nil
}

func mapHeader(row []string) ([]string, error) {
	cols := make([]string, len(row))
	hasName := false
	for i, h := range row {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		col, ok := headerAliases[key]
		if !ok {
			continue
		}
		cols[i] = col
		if col == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, eris.New("header has no name column")
	}
	return cols, nil
}

// rowToPartner returns false for rows whose cells are all blank.
func rowToPartner(columns, row []string) (model.Partner, bool) {
	var p model.Partner
	blank := true
	for i, raw := range row {
		if i >= len(columns) || columns[i] == "" {
			continue
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		blank = false
		switch columns[i] {
		case "id":
			p.ID = v
		case "name":
			p.Name = v
		case string(model.FieldCategory):
			c := model.Category(v)
			p.Category = &c
		case string(model.FieldZone):
			z := model.Zone(v)
			p.Zone = &z
		case string(model.FieldAddress):
			p.Address = model.String(v)
		case "notes":
			p.Notes = model.String(v)
		case "services_provided":
			p.ServicesDescription = model.String(v)
		case "proximity_to_location":
			p.ProximityHint = model.String(v)
		case string(model.FieldWebsite):
			p.Website = model.String(v)
		case string(model.FieldInstagramHandle):
			p.InstagramHandle = model.String(v)
		case string(model.FieldFacebookURL):
			p.FacebookURL = model.String(v)
		case string(model.FieldTikTokHandle):
			p.TikTokHandle = model.String(v)
		case string(model.FieldYouTubeURL):
			p.YouTubeURL = model.String(v)
		}
	}
	return p, !blank
}

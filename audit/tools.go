package audit

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/legalaudit"
)

// Tool names served by Tools.
const (
	ToolFetchText      = "fetch_text"
	ToolFindLegalLinks = "find_legal_links"
	ToolMatchText      = "match_text"
	ToolAuditSite      = "audit_site"
	ToolTemplatesInfo  = "templates_info"
	ToolGetReport      = "get_report"
	ToolListReports    = "list_reports"
)

// DefaultListLimit bounds list_reports when the caller gives no limit.
const DefaultListLimit = 20

type fetchTextArgs struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	MaxChars int    `json:"max_chars"`
}

type siteArgs struct {
	URL          string   `json:"url"`
	Kinds        []string `json:"kinds"`
	SameHostOnly bool     `json:"same_host_only"`
}

type matchTextArgs struct {
	Text      string   `json:"text"`
	Templates []string `json:"templates"`
}

type templatesArgs struct {
	Names []string `json:"names"`
}

type getReportArgs struct {
	ID string `json:"id"`
}

type listReportsArgs struct {
	SiteURL string `json:"site_url"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

// Tools returns the tool implementations backed by a. Report tools are
// only present when a ReportService is configured.
func (a *Auditor) Tools() map[string]legalaudit.ToolFunc {
	tools := map[string]legalaudit.ToolFunc{
		ToolFetchText: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args fetchTextArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return a.FetchText(ctx, args.URL, args.Format, args.MaxChars)
		},
		ToolFindLegalLinks: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args siteArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			kinds, err := ParseKinds(args.Kinds)
			if err != nil {
				return nil, err
			}
			links, err := a.FindLegalLinks(ctx, args.URL, kinds, legalaudit.LinkOptions{SameHostOnly: args.SameHostOnly})
			if err != nil {
				return nil, err
			}
			return map[string]any{"url": args.URL, "links": links}, nil
		},
		ToolMatchText: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args matchTextArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return a.MatchText(ctx, args.Text, args.Templates)
		},
		ToolAuditSite: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args siteArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			kinds, err := ParseKinds(args.Kinds)
			if err != nil {
				return nil, err
			}
			return a.AuditSite(ctx, args.URL, kinds, legalaudit.LinkOptions{SameHostOnly: args.SameHostOnly})
		},
		ToolTemplatesInfo: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args templatesArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			infos, err := a.Templates.Info(ctx, args.Names)
			if err != nil {
				return nil, err
			}
			return map[string]any{"templates": infos}, nil
		},
	}

	if a.Reports == nil {
		return tools
	}

	tools[ToolGetReport] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args getReportArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if args.ID == "" {
			return nil, legalaudit.Errorf(legalaudit.EINVALID, "report id required")
		}
		return a.Reports.FindReportByID(ctx, args.ID)
	}
	tools[ToolListReports] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args listReportsArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		filter := legalaudit.ReportFilter{Limit: args.Limit, Offset: args.Offset}
		if filter.Limit <= 0 {
			filter.Limit = DefaultListLimit
		}
		if args.SiteURL != "" {
			filter.SiteURL = &args.SiteURL
		}
		reports, err := a.Reports.FindReports(ctx, filter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"reports": reports}, nil
	}
	return tools
}

// decodeArgs unmarshals tool arguments. Absent arguments decode as an
// empty object.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return legalaudit.Errorf(legalaudit.EINVALID, "invalid arguments: %v", err)
	}
	return nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// PPTExtensionID is the marker extension id that turns the deck-export
// tool on for a thread.
const PPTExtensionID = "PPT_EXTENSION"

var exportDeckParameters = json.RawMessage(`{"type":"object","properties":{"prompt":{"type":"string"}}}`)

// exportDeckDescription carries the full slide/chart schema as prose.
// The model shapes its prompt argument to this schema; the executor
// checks JSON-parseability only and structural validation is the deck
// service's job.
const exportDeckDescription = `You must use this to only export a ppt. You must ask after writing a presentation if the user wants to export it before using this function.
The output passing by prompt parameter must be a valid json respecting the following rules. This json is used to export the deck.
Choose the slide that seems most relevant to you. And use the most interesting options to create impactful slides (list, bold text, chart).
Type of slide possible in pageContents: texton1column | textwithChart | dividerSlide.
Type of chart possible in textwithChart: "area" | "bar" | "bar3d" | "bubble" | "doughnut" | "line" | "pie" | "radar" | "scatter".
Complete rules used for formatting your json response:

interface SlideTitle { title: string; subtitle: string; }
interface SlideText { text: string; bullet: boolean; indentlevel: number; bold: boolean; }
interface Chart { chartType: ChartType; name: string; labels: string[]; values: number[]; }
interface TextOn1ColumnSlide { type: "texton1column"; title: string; subtitle?: string; little_title_section: string; text_body: SlideText[]; }
interface TextWithChartSlide { type: "textwithChart"; title: string; subtitle?: string; little_title_section: string; text_body: SlideText[]; chart: Chart; }
interface DividerSlide { type: "dividerSlide"; title: string; subtitle?: string; numberSection: string; }
interface SlideSummary { sectionTitle: string; sectionSubtitle: string; }
interface Slides { pageTitle: SlideTitle; pageSummary: SlideSummary[]; pageContents: SlideContent[]; }

Output strictly as valid JSON following this schema:
{"pageTitle":{"title":"Example Deck","subtitle":"Generated"},"pageSummary":[{"sectionTitle":"Short title","sectionSubtitle":"Subtitle"}],"pageContents":[{"type":"dividerSlide","numberSection":"01","title":"Introduction","subtitle":"Subtitle"},{"type":"texton1column","title":"Introduction","little_title_section":"Context","text_body":[{"text":"First line.","bullet":false,"indentlevel":0,"bold":true},{"text":"A bullet point.","bullet":true,"indentlevel":1,"bold":false}]},{"type":"textwithChart","title":"Quarterly Sales","subtitle":"Analysis","little_title_section":"Data","text_body":[{"text":"Sales grew every quarter.","bullet":false,"indentlevel":0,"bold":false}],"chart":{"chartType":"bar","name":"Quarterly Sales","labels":["Q1","Q2","Q3","Q4"],"values":[15000,20000,18000,22000]}}]}`

// DeckExporter renders a slide payload and returns a download URL.
// Deck generation internals live outside this service.
type DeckExporter interface {
	Export(ctx context.Context, threadID string, deckJSON string) (string, error)
}

// DeckTool exports a written presentation as a downloadable deck.
type DeckTool struct {
	exporter DeckExporter
	logger   *slog.Logger
}

// NewDeckTool creates a new DeckTool
func NewDeckTool(exporter DeckExporter, logger *slog.Logger) *DeckTool {
	return &DeckTool{exporter: exporter, logger: logger}
}

// Definition builds the export_ppt tool for one turn
func (t *DeckTool) Definition(threadID string) Definition {
	return Definition{
		Name:        "export_ppt",
		Description: exportDeckDescription,
		Parameters:  exportDeckParameters,
		Execute: func(ctx context.Context, arguments string) string {
			return t.execute(ctx, threadID, arguments)
		},
	}
}

func (t *DeckTool) execute(ctx context.Context, threadID, arguments string) string {
	var args struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Prompt == "" {
		return "No deck payload provided"
	}

	// Parseability gate only; the exporter owns structural validation.
	if !json.Valid([]byte(args.Prompt)) {
		return "The deck payload is not valid JSON. Regenerate it following the schema in the tool description."
	}

	url, err := t.exporter.Export(ctx, threadID, args.Prompt)
	if err != nil {
		t.logger.Error("deck export failed", "thread_id", threadID, "error", err)
		return fmt.Sprintf("There was an error storing the ppt: %v. Return this message to the user and halt execution.", err)
	}

	payload, _ := json.Marshal(map[string]string{"url_to_download": url})
	return string(payload)
}

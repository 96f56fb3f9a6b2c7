package report

import "strings"

// ReadmeOptions describe the deployment in the generated README.
type ReadmeOptions struct {
	// ReportLink is the relative link to the archived copy of the digest.
	ReportLink  string
	ArchivesDir string
	OPMLPath    string
	Schedule    string
	Timezone    string
	Provider    string
}

// RenderReadme embeds the latest digest into the repository README.
func RenderReadme(digest string, opts ReadmeOptions) string {
	archives := strings.TrimSuffix(opts.ArchivesDir, "/")

	lines := []string{
		"# Auto-RSS-Digest",
		"",
		"🤖 AI-powered RSS digest, automatically generated on schedule `" + opts.Schedule + "` (" + opts.Timezone + ").",
		"",
		"## 📰 Latest Digest",
		"",
		"👉 [View Full Report](" + opts.ReportLink + ")",
		"",
		"---",
		"",
		digest,
		"",
		"---",
		"",
		"## 📚 Archives",
		"",
		"Browse all daily digests in the [`" + archives + "/`](./" + archives + ") directory.",
		"",
		"## ⚙️ Configuration",
		"",
		"- **Schedule**: `" + opts.Schedule + "` (" + opts.Timezone + ")",
		"- **LLM**: " + opts.Provider,
		"- **Subscriptions**: See [`" + opts.OPMLPath + "`](./" + opts.OPMLPath + ")",
	}
	return strings.Join(lines, "\n")
}

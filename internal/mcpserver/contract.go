package mcpserver

// RuleFormatContract describes the canonical rule pattern syntax that
// LLM consumers should follow when creating classification rules.
const RuleFormatContract = `# Ordna Rule Format Contract

Every classification rule MUST follow this structure.

## Fields

- **name** – human-readable label, shown in listings.
- **rule_type** – one of: extension, keyword, path, regex, compound, date.
- **pattern** – syntax depends on rule_type (see below).
- **target_type** – one of: area, category, folder.
- **target_id** – the index node's id, or its code (e.g. ` + "`" + `11.02` + "`" + `).
- **priority** – optional integer 0..100, default 50. Out-of-range values
  are clamped, never rejected. Higher priority rules are evaluated first;
  ties break by match count (descending), then creation time.

## Pattern syntax per rule_type

1. **extension** – comma-separated extensions without dots, matched
   case-insensitively against the file extension: ` + "`" + `pdf,docx,txt` + "`" + `.
2. **keyword** – comma-separated tokens; the rule matches when ANY token
   appears in the filename (case-insensitive): ` + "`" + `invoice,receipt,billing` + "`" + `.
3. **path** – comma-separated tokens matched against the file's parent
   directory name: ` + "`" + `downloads,desktop` + "`" + `.
4. **regex** – a Go regular expression evaluated case-insensitively
   against the filename: ` + "`" + `^IMG_\d{4}` + "`" + `. Invalid expressions are rejected
   at rule creation.
5. **compound** – comma-separated key:value segments; requires one
   ` + "`" + `ext:` + "`" + ` segment plus at least one ` + "`" + `keyword:` + "`" + ` segment. The extension
   must match AND any keyword must appear in the filename:
   ` + "`" + `ext:pdf,keyword:invoice,keyword:receipt` + "`" + `.
6. **date** – matches a year (and optional month) token embedded in the
   filename. Either a literal ` + "`" + `2024-03` + "`" + `, or key:value segments
   ` + "`" + `year:2024,month:03` + "`" + ` (each key optional).

## Exclusions

Any rule may carry an **exclude_pattern**: comma-separated tokens that
suppress the match when found in the filename, e.g. ` + "`" + `draft,tmp` + "`" + `.

## Confidence

- extension and compound matches yield **high** confidence.
- keyword, path, regex, and date matches yield **medium**.
- the category fallback (no rule matched) yields **low**.

Auto-organization in watched folders only fires at or above the folder's
confidence threshold; everything else is queued for manual review.

## Example

` + "```" + `json
{
  "name": "Invoices to 11.02",
  "rule_type": "compound",
  "pattern": "ext:pdf,keyword:invoice,keyword:receipt",
  "exclude_pattern": "draft",
  "target_type": "folder",
  "target_id": "11.02",
  "priority": 80
}
` + "```" + `
`

package mcpserver

// AnnotationSyntax describes the note format and the inline annotations the
// indexer understands. LLM consumers should read it before writing notes.
const AnnotationSyntax = `# Note Annotation Syntax

Notes are Markdown files. The graph is built from inline annotations.

## Structure

` + "```" + `markdown
---
typ: Aufgabe          # OPTIONAL – node group; "type" is accepted too
status: offen         # OPTIONAL – board column for task notes
priorität: hoch       # OPTIONAL – shown on board cards
---

# Title of the note

Body text in standard Markdown.
` + "```" + `

The first "# " heading is the title. Front matter values are plain strings.

## Annotations

1. **References** ` + "`" + `@Name` + "`" + ` link to the note titled "Name"
   (case-insensitive). An unknown name is an unresolved reference; opening it
   creates the note.
2. **Contexts** ` + "`" + `#project/sub/topic` + "`" + ` file the note under a
   hierarchical tag. Segments are separated by "/".
3. **Bookmarks** ` + "`" + `[label](https://url)` + "`" + ` are listed as the
   note's bookmarks. A bare URL can be labelled with the page title.

## Not annotations

- Text inside fenced code blocks and inline code spans.
- ` + "`" + `@` + "`" + ` or ` + "`" + `#` + "`" + ` directly after a letter or digit
  (e-mail addresses, issue numbers like a#1).
- URLs and link destinations.
- Escaped markers: ` + "`" + `\@name` + "`" + `, ` + "`" + `\#tag` + "`" + `.

## Example

` + "```" + `markdown
# Weekly standup

@Alice reviews the @Design Doc. #team/standup

Notes: [Board](https://example.com/board)
` + "```" + `
`

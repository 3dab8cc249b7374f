package extraction

// documentPrompt instructs the vision model to return the document text and
// nothing else. Losing words here silently corrupts every draft built on top,
// so the instruction is deliberately absolute.
const documentPrompt = `Extract every word of text from this document.
Return the complete text content, preserving the original structure: headings,
lists, tables and paragraph breaks. Do not summarize, do not skip any section,
do not add commentary or explanations. Return nothing but the extracted text.`

// transcribePrompt is used for audio and video sources.
const transcribePrompt = `Transcribe this recording completely and verbatim.
Include every spoken word. Where the speaker changes, mark it on its own line
as "Speaker 1:", "Speaker 2:" and so on. Do not summarize, do not omit
passages, do not add commentary. Return nothing but the transcript.`

// youtubePrompt is the expensive fallback when no usable caption track exists.
const youtubePrompt = `Transcribe the spoken content of this video completely
and verbatim. Where the speaker changes, mark it on its own line as
"Speaker 1:", "Speaker 2:" and so on. Return nothing but the transcript.`

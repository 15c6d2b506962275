// Package record patches named record blocks inside a content Document.
//
// A named block is the literal array region
//
//	export const morningAzkar = [
//	  {
//	    id: 1,
//	    arabic: "...",
//	    transliteration: "...",
//	    translation: "...",
//	    count: 3,
//	  },
//	];
//
// The package tokenizes the block, decodes its records, folds a sequence of
// declarative edits over them, serializes the result in canonical form and
// re-parses the spliced Document before handing it back. Every operation works
// on in-memory strings; reading and writing files is left to the caller.
package record

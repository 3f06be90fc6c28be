package chunker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkGoFileUsesASTBoundaries(t *testing.T) {
	src := `package main

func helperOne() int {
	return 1
}

func helperTwo() int {
	return 2
}
`
	c := New()
	defer c.Close()

	chunks := c.Chunk("main.go", "go", src, nil, Options{ChunkTokens: 800, ChunkOverlap: 120, MinChunkTokens: 5})
	require.NotEmpty(t, chunks)

	var sawHelperOne, sawHelperTwo bool
	for _, ch := range chunks {
		for _, tag := range ch.Tags {
			if tag == "def:helperOne" {
				sawHelperOne = true
			}
			if tag == "def:helperTwo" {
				sawHelperTwo = true
			}
		}
	}
	require.True(t, sawHelperOne || sawHelperTwo, "expected at least one def: tag from %+v", chunks)
}

func TestChunkFallsBackToLineChunkerForUnknownLanguage(t *testing.T) {
	src := ""
	for i := 0; i < 200; i++ {
		src += "this is a plain text line with some words in it\n"
	}
	c := New()
	defer c.Close()

	chunks := c.Chunk("notes.txt", "", src, nil, Options{ChunkTokens: 200, ChunkOverlap: 20, MinChunkTokens: 10})
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		require.LessOrEqual(t, ch.TokenEstimate, 400)
	}
}

func TestStableChunkIDIsDeterministic(t *testing.T) {
	id1 := stableChunkID("a.go", 1, 10, "content")
	id2 := stableChunkID("a.go", 1, 10, "content")
	id3 := stableChunkID("a.go", 1, 10, "different")
	require.Equal(t, id1, id2)
	require.NotEqual(t, id1, id3)
}

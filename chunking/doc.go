// Package chunking splits documents into overlapping token windows.
//
// Text is tokenized once with a TokenCodec, a window of maxTokens tokens
// slides across the sequence advancing by maxTokens-overlap, and each window
// is decoded back to text. The final chunk may be shorter than maxTokens.
//
//	codec, err := chunking.NewTiktokenCodec(chunking.DefaultEncoding)
//	chunker, err := chunking.New(codec)
//	chunks, err := chunker.Split(text)
package chunking

package snapshot

// Chunk splits elems into order-preserving groups whose serialized size stays
// within maxSize. An element larger than maxSize on its own gets its own group.
// A non-positive maxSize returns all elements as a single group.
func Chunk(elems []Element, maxSize int) [][]Element {
	if len(elems) == 0 {
		return nil
	}
	if maxSize <= 0 {
		return [][]Element{elems}
	}

	var (
		chunks  [][]Element
		current []Element
		size    int
	)
	for _, el := range elems {
		elSize := Size(el)
		if size+elSize > maxSize && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			size = 0
		}
		current = append(current, el)
		size += elSize
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// ChunkSize sums the serialized sizes of chunk.
func ChunkSize(chunk []Element) int {
	total := 0
	for _, el := range chunk {
		total += Size(el)
	}
	return total
}

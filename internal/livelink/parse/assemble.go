package parse

// Assemble groups decoded coefficients into a SourcePose following the
// vocabulary's binding table. Every channel the vocabulary names must be
// present in values.
func Assemble(values map[string]float32, vocab *Vocabulary) (*SourcePose, error) {
	pose := &SourcePose{}
	if vocab.HasBrow() {
		pose.Brow = &BrowPose{}
	}
	if vocab.HasHead() {
		pose.Head = &HeadPose{}
	}

	for _, ch := range vocab.channels {
		v, ok := values[ch.Name]
		if !ok {
			return nil, &AssembleError{Channel: ch.Name}
		}
		pose.set(ch.Binding, v)
	}
	return pose, nil
}

// ParseFrame decodes and assembles one datagram with vocab.
func ParseFrame(packet []byte, vocab *Vocabulary) (*SourcePose, error) {
	values, err := Decode(packet, vocab.Names())
	if err != nil {
		return nil, err
	}
	return Assemble(values, vocab)
}

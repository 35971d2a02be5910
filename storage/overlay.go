package storage

// Overlay stages writes on top of a base database so a command can be applied
// tentatively and then either committed as a unit or discarded. Reads observe
// staged writes first and fall through to the base store.
//
// Overlay is not safe for concurrent use; the sequencer holds it exclusively
// for the duration of one command.
type Overlay struct {
	base    Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewOverlay creates an empty overlay on top of the provided base store.
func NewOverlay(base Database) *Overlay {
	return &Overlay{
		base:    base,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	delete(o.deletes, string(key))
	o.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if _, gone := o.deletes[string(key)]; gone {
		return nil, ErrNotFound
	}
	if value, ok := o.writes[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.base.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	if _, gone := o.deletes[string(key)]; gone {
		return false, nil
	}
	if _, ok := o.writes[string(key)]; ok {
		return true, nil
	}
	return o.base.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	delete(o.writes, string(key))
	o.deletes[string(key)] = struct{}{}
	return nil
}

// Write stages every operation in the batch; nothing reaches the base store
// until Commit.
func (o *Overlay) Write(batch *Batch) error {
	for _, op := range batch.ops {
		if op.delete {
			if err := o.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := o.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

// Close satisfies the Database interface; the base store stays open.
func (o *Overlay) Close() {}

// Commit flushes all staged mutations to the base store as a single atomic
// batch, so a concurrent reader of the base sees either the state before the
// command or the state after it, never a mixture.
func (o *Overlay) Commit() error {
	batch := NewBatch()
	for key := range o.deletes {
		batch.Delete([]byte(key))
	}
	for key, value := range o.writes {
		batch.Put([]byte(key), value)
	}
	if err := o.base.Write(batch); err != nil {
		return err
	}
	o.Discard()
	return nil
}

// Discard drops all staged mutations without touching the base store.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
}

var _ Database = (*Overlay)(nil)

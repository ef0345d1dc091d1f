package catalog

// RuleCatalog is the read-only aggregate of every rule the scan engine can
// match against. It is built once (from disk or a remote API) and shared by
// every per-file FileScanContext for the duration of a scan; nothing in this
// package mutates a RuleCatalog after RemoveSkipped has run.
type RuleCatalog struct {
	Elements   map[string]*DataElement
	Sinks      map[Language]map[string]*DataSink
	Sanitizers []*Sanitizer

	// elementOrder preserves a stable iteration order over Elements so that
	// find_data_element's "first match wins" tie-break is reproducible across runs.
	elementOrder []string
	sinkOrder    map[Language][]string
}

// New builds an empty catalog ready to be populated by a loader.
func New() *RuleCatalog {
	return &RuleCatalog{
		Elements:  make(map[string]*DataElement),
		Sinks:     make(map[Language]map[string]*DataSink),
		sinkOrder: make(map[Language][]string),
	}
}

// AddElement registers a data element, recording its insertion order.
func (c *RuleCatalog) AddElement(e *DataElement) {
	if _, exists := c.Elements[e.ID]; !exists {
		c.elementOrder = append(c.elementOrder, e.ID)
	}
	c.Elements[e.ID] = e
}

// AddSink registers a data sink under its language bucket.
func (c *RuleCatalog) AddSink(s *DataSink) {
	bucket, ok := c.Sinks[s.Language]
	if !ok {
		bucket = make(map[string]*DataSink)
		c.Sinks[s.Language] = bucket
	}
	if _, exists := bucket[s.ID]; !exists {
		c.sinkOrder[s.Language] = append(c.sinkOrder[s.Language], s.ID)
	}
	bucket[s.ID] = s
}

// AddSanitizer appends a sanitizer to the catalog.
func (c *RuleCatalog) AddSanitizer(s *Sanitizer) {
	c.Sanitizers = append(c.Sanitizers, s)
}

// OrderedElements returns every element in the stable order they were added,
// which is what scan.FileScanContext.FindDataElement iterates over when
// resolving ties.
func (c *RuleCatalog) OrderedElements() []*DataElement {
	out := make([]*DataElement, 0, len(c.elementOrder))
	for _, id := range c.elementOrder {
		if e, ok := c.Elements[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// OrderedSinks returns every sink registered for lang in stable insertion order.
func (c *RuleCatalog) OrderedSinks(lang Language) []*DataSink {
	bucket := c.Sinks[lang]
	ids := c.sinkOrder[lang]
	out := make([]*DataSink, 0, len(ids))
	for _, id := range ids {
		if s, ok := bucket[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a shallow copy of the catalog's tables, letting a caller
// apply a scan-scoped RemoveSkipped without mutating the shared catalog other
// concurrent scans still reference.
func (c *RuleCatalog) Clone() *RuleCatalog {
	clone := New()
	for _, id := range c.elementOrder {
		clone.AddElement(c.Elements[id])
	}
	for lang, ids := range c.sinkOrder {
		for _, id := range ids {
			clone.AddSink(c.Sinks[lang][id])
		}
	}
	clone.Sanitizers = append(clone.Sanitizers, c.Sanitizers...)
	return clone
}

// RemoveSkipped drops elements and sinks whose id appears in the given skip
// sets, the CLI layer's way of narrowing what the core engine sees; ids are
// expected already normalized to lower case by the caller.
func (c *RuleCatalog) RemoveSkipped(skipElementIDs, skipSinkIDs map[string]struct{}) {
	if len(skipElementIDs) > 0 {
		kept := c.elementOrder[:0:0]
		for _, id := range c.elementOrder {
			if _, skip := skipElementIDs[id]; skip {
				delete(c.Elements, id)
				continue
			}
			kept = append(kept, id)
		}
		c.elementOrder = kept
	}
	if len(skipSinkIDs) > 0 {
		for lang, ids := range c.sinkOrder {
			bucket := c.Sinks[lang]
			kept := ids[:0:0]
			for _, id := range ids {
				if _, skip := skipSinkIDs[id]; skip {
					delete(bucket, id)
					continue
				}
				kept = append(kept, id)
			}
			c.sinkOrder[lang] = kept
		}
	}
}

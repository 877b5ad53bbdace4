package models

import "time"

// Field is one attribute name/value pair of a document.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Document is a stored document: an id plus its attribute values in schema
// declaration order. Order is preserved so display output matches the order
// of the ingested CSV columns.
type Document struct {
	ID        string    `json:"id"`
	Fields    []Field   `json:"fields"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get returns the value of the named attribute and whether it exists.
func (d *Document) Get(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the value of the named attribute, appending it when absent.
func (d *Document) Set(name, value string) {
	for i, f := range d.Fields {
		if f.Name == name {
			d.Fields[i].Value = value
			return
		}
	}
	d.Fields = append(d.Fields, Field{Name: name, Value: value})
}

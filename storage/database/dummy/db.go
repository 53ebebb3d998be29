// Package dummydb provides in-memory repositories backing tests and local
// development without a live database.
package dummydb

import (
	"sync"

	"github.com/trezcool/karo/core/catalog"
	"github.com/trezcool/karo/core/enrollment"
	"github.com/trezcool/karo/core/invoice"
	"github.com/trezcool/karo/core/student"
)

type (
	DB struct {
		subject    *subjectTable
		addOn      *addOnTable
		student    *studentTable
		enrollment *enrollmentTable
		invoice    *invoiceTable
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*catalog.Subject
	}

	addOnTable struct {
		sync.RWMutex
		table map[string]*catalog.AddOn
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enrollment.Enrollment
	}

	invoiceTable struct {
		sync.RWMutex
		table map[string]*invoice.Invoice
		seqs  map[int]int
	}
)

func Open() (*DB, error) {
	db := &DB{
		subject:    &subjectTable{table: make(map[string]*catalog.Subject)},
		addOn:      &addOnTable{table: make(map[string]*catalog.AddOn)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		enrollment: &enrollmentTable{table: make(map[string]*enrollment.Enrollment)},
		invoice:    &invoiceTable{table: make(map[string]*invoice.Invoice), seqs: make(map[int]int)},
	}
	return db, nil
}

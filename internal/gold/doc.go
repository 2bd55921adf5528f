// Package gold builds the dimensional model of the gold layer from the silver
// tables.
//
// The model is described in YAML:
//
//	dimensions:
//	  - name: customer
//	    source: customers
//	    columns: [customer_id, name]
//	facts:
//	  - name: sales
//	    source: orders
//	    dimensions: [customer]
//	    measures: [amount]
//
// Each dimension becomes dim_<name> with a surrogate <name>_key, each fact
// becomes fact_<name> holding the keys of its dimensions and its measures.
// Without a model file the gold layer profiles the silver tables instead.
package gold

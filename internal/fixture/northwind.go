// Package fixture generates the deterministic Northwind-style data set the
// live store is seeded with and the baseline snapshot is built from.
//
// The generator is pure: every call returns fresh, unlinked entities with
// identical values, so the store and the snapshot never share instances.
//
// Shape of the data:
//   - 91 customers, 6 of them in London; FISSA and PARIS place no orders
//   - 9 employees; employee 2 reports to nobody
//   - 77 products, every tenth one discontinued
//   - 830 orders numbered from 10248, some without customer or employee
//   - 1 to 3 detail lines per order, never repeating a product within an order
package fixture

import (
	"fmt"

	"github.com/roach88/qoracle/internal/model"
)

// FirstOrderID is the id of the first generated order.
const FirstOrderID = 10248

// Counts of the generated data set.
const (
	CustomerCount = 91
	EmployeeCount = 9
	ProductCount  = 77
	OrderCount    = 830
)

var customerIDs = []string{
	"ALFKI", "ANATR", "ANTON", "AROUT", "BERGS", "BLAUS", "BLONP", "BOLID", "BONAP", "BOTTM",
	"BSBEV", "CACTU", "CENTC", "CHOPS", "COMMI", "CONSH", "DRACD", "DUMON", "EASTC", "ERNSH",
	"FAMIA", "FISSA", "FOLIG", "FOLKO", "FRANK", "FRANR", "FRANS", "FURIB", "GALED", "GODOS",
	"GOURL", "GREAL", "GROSR", "HANAR", "HILAA", "HUNGC", "HUNGO", "ISLAT", "KOENE", "LACOR",
	"LAMAI", "LAUGB", "LAZYK", "LEHMS", "LETSS", "LILAS", "LINOD", "LONEP", "MAGAA", "MAISD",
	"MEREP", "MORGK", "NORTS", "OCEAN", "OLDWO", "OTTIK", "PARIS", "PERIC", "PICCO", "PRINI",
	"QUEDE", "QUEEN", "QUICK", "RANCH", "RATTC", "REGGC", "RICAR", "RICSU", "ROMEY", "SANTG",
	"SAVEA", "SEVES", "SIMOB", "SPECD", "SPLIR", "SUPRD", "THEBI", "THECR", "TOMSP", "TORTU",
	"TRADH", "TRAIH", "VAFFE", "VICTE", "VINET", "WANDK", "WARTH", "WELLI", "WHITC", "WILMK",
	"WOLZA",
}

var londonCustomers = map[string]bool{
	"AROUT": true, "BSBEV": true, "CONSH": true, "EASTC": true, "NORTS": true, "SEVES": true,
}

var customersWithoutOrders = map[string]bool{"FISSA": true, "PARIS": true}

type place struct{ city, country string }

var places = []place{
	{"Berlin", "Germany"}, {"México D.F.", "Mexico"}, {"Luleå", "Sweden"}, {"Mannheim", "Germany"},
	{"Strasbourg", "France"}, {"Madrid", "Spain"}, {"Marseille", "France"}, {"Tsawassen", "Canada"},
	{"Buenos Aires", "Argentina"}, {"Bern", "Switzerland"}, {"São Paulo", "Brazil"}, {"Aachen", "Germany"},
	{"Seattle", "USA"}, {"Portland", "USA"}, {"Lyon", "France"}, {"Graz", "Austria"},
}

var employees = []struct {
	first, last, title, city string
	reportsTo               int64
}{
	{"Nancy", "Davolio", "Sales Representative", "Seattle", 2},
	{"Andrew", "Fuller", "Vice President, Sales", "Tacoma", 0},
	{"Janet", "Leverling", "Sales Representative", "Kirkland", 2},
	{"Margaret", "Peacock", "Sales Representative", "Redmond", 2},
	{"Steven", "Buchanan", "Sales Manager", "London", 2},
	{"Michael", "Suyama", "Sales Representative", "London", 5},
	{"Robert", "King", "Sales Representative", "London", 5},
	{"Laura", "Callahan", "Inside Sales Coordinator", "Seattle", 2},
	{"Anne", "Dodsworth", "Sales Representative", "London", 5},
}

// Dataset holds unlinked entities in generation order.
type Dataset struct {
	Customers    []*model.Customer
	Employees    []*model.Employee
	Products     []*model.Product
	Orders       []*model.Order
	OrderDetails []*model.OrderDetail
}

// Rows returns the entities of a set in generation order.
func (d *Dataset) Rows(set string) ([]model.Entity, error) {
	switch set {
	case model.SetCustomers:
		return asEntities(d.Customers), nil
	case model.SetEmployees:
		return asEntities(d.Employees), nil
	case model.SetProducts:
		return asEntities(d.Products), nil
	case model.SetOrders:
		return asEntities(d.Orders), nil
	case model.SetOrderDetails:
		return asEntities(d.OrderDetails), nil
	}
	return nil, fmt.Errorf("unknown entity set %q", set)
}

// InsertOrder lists sets so that referenced rows precede referencing rows.
var InsertOrder = []string{
	model.SetCustomers, model.SetEmployees, model.SetProducts, model.SetOrders, model.SetOrderDetails,
}

// Northwind generates the data set.
func Northwind() *Dataset {
	d := &Dataset{}

	nonLondon := 0
	for i, id := range customerIDs {
		c := &model.Customer{
			CustomerID:  id,
			CompanyName: fmt.Sprintf("%s Trading", id),
			ContactName: fmt.Sprintf("Contact %02d", i+1),
		}
		if londonCustomers[id] {
			c.City, c.Country = "London", "UK"
		} else {
			p := places[nonLondon%len(places)]
			c.City, c.Country = p.city, p.country
			nonLondon++
		}
		if i%3 == 1 {
			region := fmt.Sprintf("R%d", i%7)
			c.Region = &region
		}
		d.Customers = append(d.Customers, c)
	}

	for i, e := range employees {
		emp := &model.Employee{
			EmployeeID: int64(i + 1),
			FirstName:  e.first,
			LastName:   e.last,
			Title:      e.title,
			City:       e.city,
		}
		if e.reportsTo != 0 {
			r := e.reportsTo
			emp.ReportsTo = &r
		}
		d.Employees = append(d.Employees, emp)
	}

	for i := 1; i <= ProductCount; i++ {
		d.Products = append(d.Products, &model.Product{
			ProductID:    int64(i),
			ProductName:  fmt.Sprintf("Product %c%c", 'A'+rune(i%26), 'A'+rune((i*7)%26)),
			UnitPrice:    int64(250 + (i*1237)%9000),
			UnitsInStock: int64((i * 17) % 120),
			Discontinued: i%10 == 0,
		})
	}

	var buyers []string
	for _, id := range customerIDs {
		if !customersWithoutOrders[id] {
			buyers = append(buyers, id)
		}
	}

	for k := 0; k < OrderCount; k++ {
		o := &model.Order{
			OrderID: int64(FirstOrderID + k),
			Freight: int64((k * 7919) % 100000),
		}
		if k%97 != 50 {
			id := buyers[(k*37)%len(buyers)]
			o.CustomerID = &id
			o.ShipCountry = countryOf(d.Customers, id)
		} else {
			o.ShipCountry = "UK"
		}
		if k%61 != 7 {
			emp := int64(1 + (k*5)%EmployeeCount)
			o.EmployeeID = &emp
		}
		d.Orders = append(d.Orders, o)

		for j := 0; j <= k%3; j++ {
			pid := int64(1 + (k*13+j*29)%ProductCount)
			d.OrderDetails = append(d.OrderDetails, &model.OrderDetail{
				OrderID:   o.OrderID,
				ProductID: pid,
				UnitPrice: d.Products[pid-1].UnitPrice,
				Quantity:  int64(1 + (k+j*7)%40),
			})
		}
	}

	return d
}

func countryOf(customers []*model.Customer, id string) string {
	for _, c := range customers {
		if c.CustomerID == id {
			return c.Country
		}
	}
	return ""
}

func asEntities[T model.Entity](list []T) []model.Entity {
	out := make([]model.Entity, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}

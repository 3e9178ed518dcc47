package model

import "strconv"

// Customer is a row of the customers set.
type Customer struct {
	CustomerID  string
	CompanyName string
	ContactName string
	City        string
	Country     string
	Region      *string

	Orders []*Order
}

func (c *Customer) EntitySet() string { return SetCustomers }
func (c *Customer) Key() Key { return Key{Set: SetCustomers, ID: c.CustomerID} }

func (c *Customer) Field(column string) (any, bool) {
	switch column {
	case "customer_id":
		return c.CustomerID, true
	case "company_name":
		return c.CompanyName, true
	case "contact_name":
		return c.ContactName, true
	case "city":
		return c.City, true
	case "country":
		return c.Country, true
	case "region":
		return optString(c.Region), true
	}
	return nil, false
}

func (c *Customer) Assign(column string, v any) error {
	switch column {
	case "customer_id":
		return assignString(&c.CustomerID, column, v)
	case "company_name":
		return assignString(&c.CompanyName, column, v)
	case "contact_name":
		return assignString(&c.ContactName, column, v)
	case "city":
		return assignString(&c.City, column, v)
	case "country":
		return assignString(&c.Country, column, v)
	case "region":
		return assignOptString(&c.Region, column, v)
	}
	return &UnknownColumnError{Set: SetCustomers, Column: column}
}

func (c *Customer) Navigate(name string) []Entity {
	if name == "orders" {
		return entities(c.Orders)
	}
	return nil
}

func (c *Customer) Attach(name string, target Entity) error {
	if name != "orders" {
		return &UnknownNavigationError{Set: SetCustomers, Navigation: name}
	}
	o, ok := target.(*Order)
	if !ok {
		return targetMismatch(SetCustomers, name, target)
	}
	c.Orders = appendUnique(c.Orders, o)
	return nil
}

// Employee is a row of the employees set. Manager is optional: the head of
// the hierarchy reports to nobody.
type Employee struct {
	EmployeeID int64
	FirstName  string
	LastName   string
	Title      string
	City       string
	ReportsTo  *int64

	Manager *Employee
	Reports []*Employee
	Orders  []*Order
}

func (e *Employee) EntitySet() string { return SetEmployees }
func (e *Employee) Key() Key {
	return Key{Set: SetEmployees, ID: strconv.FormatInt(e.EmployeeID, 10)}
}

func (e *Employee) Field(column string) (any, bool) {
	switch column {
	case "employee_id":
		return e.EmployeeID, true
	case "first_name":
		return e.FirstName, true
	case "last_name":
		return e.LastName, true
	case "title":
		return e.Title, true
	case "city":
		return e.City, true
	case "reports_to":
		return optInt(e.ReportsTo), true
	}
	return nil, false
}

func (e *Employee) Assign(column string, v any) error {
	switch column {
	case "employee_id":
		return assignInt(&e.EmployeeID, column, v)
	case "first_name":
		return assignString(&e.FirstName, column, v)
	case "last_name":
		return assignString(&e.LastName, column, v)
	case "title":
		return assignString(&e.Title, column, v)
	case "city":
		return assignString(&e.City, column, v)
	case "reports_to":
		return assignOptInt(&e.ReportsTo, column, v)
	}
	return &UnknownColumnError{Set: SetEmployees, Column: column}
}

func (e *Employee) Navigate(name string) []Entity {
	switch name {
	case "manager":
		return single(e.Manager, e.Manager == nil)
	case "reports":
		return entities(e.Reports)
	case "orders":
		return entities(e.Orders)
	}
	return nil
}

func (e *Employee) Attach(name string, target Entity) error {
	switch name {
	case "manager", "reports":
		m, ok := target.(*Employee)
		if !ok {
			return targetMismatch(SetEmployees, name, target)
		}
		if name == "manager" {
			e.Manager = m
		} else {
			e.Reports = appendUnique(e.Reports, m)
		}
		return nil
	case "orders":
		o, ok := target.(*Order)
		if !ok {
			return targetMismatch(SetEmployees, name, target)
		}
		e.Orders = appendUnique(e.Orders, o)
		return nil
	}
	return &UnknownNavigationError{Set: SetEmployees, Navigation: name}
}

// Product is a row of the products set. Prices are in cents.
type Product struct {
	ProductID    int64
	ProductName  string
	UnitPrice    int64
	UnitsInStock int64
	Discontinued bool

	Details []*OrderDetail
}

func (p *Product) EntitySet() string { return SetProducts }
func (p *Product) Key() Key {
	return Key{Set: SetProducts, ID: strconv.FormatInt(p.ProductID, 10)}
}

func (p *Product) Field(column string) (any, bool) {
	switch column {
	case "product_id":
		return p.ProductID, true
	case "product_name":
		return p.ProductName, true
	case "unit_price":
		return p.UnitPrice, true
	case "units_in_stock":
		return p.UnitsInStock, true
	case "discontinued":
		return p.Discontinued, true
	}
	return nil, false
}

func (p *Product) Assign(column string, v any) error {
	switch column {
	case "product_id":
		return assignInt(&p.ProductID, column, v)
	case "product_name":
		return assignString(&p.ProductName, column, v)
	case "unit_price":
		return assignInt(&p.UnitPrice, column, v)
	case "units_in_stock":
		return assignInt(&p.UnitsInStock, column, v)
	case "discontinued":
		return assignBool(&p.Discontinued, column, v)
	}
	return &UnknownColumnError{Set: SetProducts, Column: column}
}

func (p *Product) Navigate(name string) []Entity {
	if name == "details" {
		return entities(p.Details)
	}
	return nil
}

func (p *Product) Attach(name string, target Entity) error {
	if name != "details" {
		return &UnknownNavigationError{Set: SetProducts, Navigation: name}
	}
	d, ok := target.(*OrderDetail)
	if !ok {
		return targetMismatch(SetProducts, name, target)
	}
	p.Details = appendUnique(p.Details, d)
	return nil
}

// Order is a row of the orders set. CustomerID and EmployeeID are nullable,
// so both reference navigations are optional. Freight is in cents.
type Order struct {
	OrderID     int64
	CustomerID  *string
	EmployeeID  *int64
	Freight     int64
	ShipCountry string

	Customer *Customer
	Employee *Employee
	Details  []*OrderDetail
}

func (o *Order) EntitySet() string { return SetOrders }
func (o *Order) Key() Key {
	return Key{Set: SetOrders, ID: strconv.FormatInt(o.OrderID, 10)}
}

func (o *Order) Field(column string) (any, bool) {
	switch column {
	case "order_id":
		return o.OrderID, true
	case "customer_id":
		return optString(o.CustomerID), true
	case "employee_id":
		return optInt(o.EmployeeID), true
	case "freight":
		return o.Freight, true
	case "ship_country":
		return o.ShipCountry, true
	}
	return nil, false
}

func (o *Order) Assign(column string, v any) error {
	switch column {
	case "order_id":
		return assignInt(&o.OrderID, column, v)
	case "customer_id":
		return assignOptString(&o.CustomerID, column, v)
	case "employee_id":
		return assignOptInt(&o.EmployeeID, column, v)
	case "freight":
		return assignInt(&o.Freight, column, v)
	case "ship_country":
		return assignString(&o.ShipCountry, column, v)
	}
	return &UnknownColumnError{Set: SetOrders, Column: column}
}

func (o *Order) Navigate(name string) []Entity {
	switch name {
	case "customer":
		return single(o.Customer, o.Customer == nil)
	case "employee":
		return single(o.Employee, o.Employee == nil)
	case "details":
		return entities(o.Details)
	}
	return nil
}

func (o *Order) Attach(name string, target Entity) error {
	switch name {
	case "customer":
		c, ok := target.(*Customer)
		if !ok {
			return targetMismatch(SetOrders, name, target)
		}
		o.Customer = c
	case "employee":
		e, ok := target.(*Employee)
		if !ok {
			return targetMismatch(SetOrders, name, target)
		}
		o.Employee = e
	case "details":
		d, ok := target.(*OrderDetail)
		if !ok {
			return targetMismatch(SetOrders, name, target)
		}
		o.Details = appendUnique(o.Details, d)
	default:
		return &UnknownNavigationError{Set: SetOrders, Navigation: name}
	}
	return nil
}

// OrderDetail is a row of the order_details set, keyed by (order, product).
type OrderDetail struct {
	OrderID   int64
	ProductID int64
	UnitPrice int64
	Quantity  int64

	Order   *Order
	Product *Product
}

func (d *OrderDetail) EntitySet() string { return SetOrderDetails }
func (d *OrderDetail) Key() Key {
	return Key{
		Set: SetOrderDetails,
		ID:  strconv.FormatInt(d.OrderID, 10) + "|" + strconv.FormatInt(d.ProductID, 10),
	}
}

func (d *OrderDetail) Field(column string) (any, bool) {
	switch column {
	case "order_id":
		return d.OrderID, true
	case "product_id":
		return d.ProductID, true
	case "unit_price":
		return d.UnitPrice, true
	case "quantity":
		return d.Quantity, true
	}
	return nil, false
}

func (d *OrderDetail) Assign(column string, v any) error {
	switch column {
	case "order_id":
		return assignInt(&d.OrderID, column, v)
	case "product_id":
		return assignInt(&d.ProductID, column, v)
	case "unit_price":
		return assignInt(&d.UnitPrice, column, v)
	case "quantity":
		return assignInt(&d.Quantity, column, v)
	}
	return &UnknownColumnError{Set: SetOrderDetails, Column: column}
}

func (d *OrderDetail) Navigate(name string) []Entity {
	switch name {
	case "order":
		return single(d.Order, d.Order == nil)
	case "product":
		return single(d.Product, d.Product == nil)
	}
	return nil
}

func (d *OrderDetail) Attach(name string, target Entity) error {
	switch name {
	case "order":
		o, ok := target.(*Order)
		if !ok {
			return targetMismatch(SetOrderDetails, name, target)
		}
		d.Order = o
	case "product":
		p, ok := target.(*Product)
		if !ok {
			return targetMismatch(SetOrderDetails, name, target)
		}
		d.Product = p
	default:
		return &UnknownNavigationError{Set: SetOrderDetails, Navigation: name}
	}
	return nil
}

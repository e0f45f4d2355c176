package documents

// CustomerRef is a weak reference to a customer with display fields.
type CustomerRef struct {
	CustomerID         string `db:"customer_id" json:"customerId,omitempty"`
	CustomerName       string `db:"customer_name" json:"customerName,omitempty"`
	CustomerAddress    string `db:"customer_address" json:"customerAddress,omitempty"`
	CustomerSalutation string `db:"customer_salutation" json:"customerSalutation,omitempty"`
}

// ProjectRef is a weak reference to a project with display fields.
type ProjectRef struct {
	ProjectID     string `db:"project_id" json:"projectId,omitempty"`
	ProjectName   string `db:"project_name" json:"projectName,omitempty"`
	ProjectNumber string `db:"project_number" json:"projectNumber,omitempty"`
}

package schema

// DependentScope selects which dependents listing of a repository is scraped.
type DependentScope string

// Dependent scopes.
const (
	RepositoryDependents DependentScope = "REPOSITORY"
	PackageDependents    DependentScope = "PACKAGE"
)

// Dependent is one repository that depends on the scraped repository.
type Dependent struct {
	Repo  string `json:"repo"` // owner/name
	Stars int    `json:"stars"`
	Forks int    `json:"forks"`
}

// URL returns the web address of the dependent repository.
func (d Dependent) URL() string {
	return "https://github.com/" + d.Repo
}

package gokline

// Progress receives transfer progress. Implementations only render, they
// never influence the protocol.
type Progress interface {
	Start(total int, description string)
	Add(n int)
	Done()
}

type NopProgress struct{}

func (NopProgress) Start(int, string) {}
func (NopProgress) Add(int)           {}
func (NopProgress) Done()             {}

package domain

// Capability describes one action or event the connector offers downstream.
type Capability struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Desc  string `json:"desc"`
}

// CapabilityList is the envelope the automation platform expects.
type CapabilityList struct {
	List []Capability `json:"list"`
}

// ActionCapabilities lists the actions this connector performs.
func ActionCapabilities() CapabilityList {
	return CapabilityList{List: []Capability{{
		Field: "To upload a file",
		Value: "upload_file",
		Desc:  "This connector takes the return value of the flow function, and uploads it to the connected Dropbox API. It corresponds to the upload event in Dropbox API.",
	}}}
}

// EventCapabilities lists the events this connector emits.
func EventCapabilities() CapabilityList {
	return CapabilityList{List: []Capability{{
		Field: "Received a file",
		Value: EventKindFile,
		Desc:  "This connector is triggered when a new file is uploaded to the connected Dropbox. It corresponds to the upload event in Dropbox API.",
	}}}
}

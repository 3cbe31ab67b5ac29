package testutil

// CRMSchema is a CUE schema describing a small CRM: contacts, accounts with
// a business process, system users and async operations. Tests across
// packages compile it with metadata.CompileCUE.
const CRMSchema = `
entity: contact: {
	primary_id:   "contactid"
	primary_name: "fullname"
	attributes: {
		fullname:         type: "string"
		firstname:        type: "string"
		lastname:         type: "string"
		emailaddress1:    type: "string"
		description:      type: "memo"
		birthdate:        type: "datetime"
		donotemail:       type: "boolean"
		numberofchildren: type: "integer"
		creditlimit:      type: "money"
		exchangerate:     type: "decimal"
		latitude:         type: "double"
		merged:           type: "boolean"
		entityimage:      type: "virtual"
		gendercode: {
			type: "picklist"
			options: [
				{value: 1, label: "Male"},
				{value: 2, label: "Female", labels: [{language: 1043, label: "Vrouw"}]},
				{label: "Unset"},
			]
		}
		parentcustomerid: {type: "customer", targets: ["account", "contact"]}
		masterid: {type: "lookup", targets: ["contact"]}
		ownerid: {type: "owner", targets: ["systemuser"]}
		statecode: {
			type: "state"
			options: [{value: 0, label: "Active"}, {value: 1, label: "Inactive"}]
		}
		statuscode: {
			type: "status"
			options: [{value: 1, state: 0, label: "Active"}, {value: 2, state: 1, label: "Inactive"}]
		}
	}
}

entity: account: {
	primary_id:   "accountid"
	primary_name: "name"
	attributes: {
		name:       type: "string"
		telephone1: type: "string"
		merged:     type: "boolean"
		primarycontactid: {type: "lookup", targets: ["contact"]}
		masterid: {type: "lookup", targets: ["account"]}
		ownerid: {type: "owner", targets: ["systemuser"]}
		statecode: {
			type: "state"
			options: [{value: 0, label: "Active"}, {value: 1, label: "Inactive"}]
		}
		statuscode: {
			type: "status"
			options: [{value: 1, state: 0, label: "Active"}, {value: 2, state: 1, label: "Inactive"}]
		}
	}
	process: {
		name: "Account Onboarding"
		stages: ["Qualify", "Develop", "Propose", "Close"]
	}
}

entity: systemuser: {
	primary_name: "fullname"
	attributes: fullname: type: "string"
}

entity: asyncoperation: {
	primary_name: "name"
	attributes: {
		name: type: "string"
		regardingobjectid: {type: "lookup", targets: ["account", "contact"]}
		statecode: {
			type: "state"
			options: [
				{value: 0, label: "Ready"},
				{value: 1, label: "Suspended"},
				{value: 2, label: "Locked"},
				{value: 3, label: "Completed"},
			]
		}
		statuscode: {
			type: "status"
			options: [
				{value: 0, state: 0, label: "Waiting For Resources"},
				{value: 10, state: 1, label: "Waiting"},
				{value: 20, state: 2, label: "In Progress"},
				{value: 30, state: 3, label: "Succeeded"},
				{value: 31, state: 3, label: "Failed"},
				{value: 32, state: 3, label: "Canceled"},
			]
		}
	}
}

relationship: contact_account_nn: {entity1: "contact", entity2: "account"}
`

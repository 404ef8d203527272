/*
	Project: CACE - attendance and grading portal of the school backend
	Users: professors (grades & attendance) and administrators (users, assignments, rosters, logs)
*/
package cace

/*
Layout:
	apps/web    - server-rendered portal (echo)
	apps/cli    - admin command line
	core        - config, validation, auth sessions, school records, collections, rosters
	services    - school backend client, rollbar logger
	storage     - session stores (memory, redis, postgres)

TODO: spanish UI texts; the portal only speaks english for now
TODO: password reset once the backend exposes an endpoint for it
*/

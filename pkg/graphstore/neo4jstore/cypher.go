package neo4jstore

const (
	countsCypher = `
		CALL { MATCH (n) RETURN count(n) AS nodes }
		CALL { MATCH ()-[r]->() RETURN count(r) AS edges }
		RETURN nodes, edges`

	fullCypher = `MATCH p=()-[r]->() RETURN p`

	neighborhoodCypher = `
		MATCH p=(s:Subscriber {phoneNumber: $phone})-[*0..1]-(neighbor)
		RETURN p`

	// allShortestPaths rejects identical endpoints, so that case is answered
	// with the zero-length path.
	sameSubscriberCypher = `MATCH p=(s:Subscriber {phoneNumber: $start}) RETURN p`

	shortestPathsCypher = `
		MATCH (a:Subscriber {phoneNumber: $start}), (b:Subscriber {phoneNumber: $end})
		MATCH p=allShortestPaths((a)-[*]-(b))
		RETURN p`

	// Stage one keeps only listing sets the owner holds an OWNS edge to.
	// Stage two walks from their Communications through any relationship to
	// any depth, without crossing OWNS, reaching a User or entering a listing
	// set that did not qualify.
	ownedCypher = `
		MATCH (u:User {username: $owner})-[:OWNS]->(ls:ListingSet)
		WHERE ls.id IN $listing_set_ids
		MATCH (c:Communication)-[:PART_OF]->(ls)
		WITH collect(DISTINCT c) AS scoped, collect(DISTINCT ls) AS sets
		UNWIND scoped AS c
		MATCH p=(c)-[*]-(n)
		WHERE all(r IN relationships(p) WHERE type(r) <> 'OWNS')
		  AND none(x IN nodes(p) WHERE x:User OR (x:ListingSet AND NOT x IN sets))
		RETURN DISTINCT p`

	ingestCypher = `
		MATCH (ls:ListingSet {id: $listing_set_id})
		MERGE (caller:Subscriber {phoneNumber: $caller})
		MERGE (callee:Subscriber {phoneNumber: $callee})
		MERGE (d:Device {imei: $imei})
		MERGE (t:CellTower {name: $tower_name})
		ON CREATE SET t.longitude = $tower_long, t.latitude = $tower_lat
		CREATE (c:Communication {type: $type, timestamp: $timestamp, duration: $duration})
		CREATE (caller)-[:INITIATED]->(c)
		CREATE (c)-[:IS_DIRECTED_TO]->(callee)
		CREATE (c)-[:USED_DEVICE]->(d)
		CREATE (c)-[:ROUTED_THROUGH]->(t)
		CREATE (c)-[:PART_OF]->(ls)
		RETURN elementId(c) AS id`

	createListingSetCypher = `
		MATCH (u:User {username: $owner})
		CREATE (ls:ListingSet {
			id: $id,
			name: $name,
			description: $description,
			owner_username: $owner,
			createdAt: $created_at
		})
		CREATE (u)-[:OWNS]->(ls)
		RETURN ls.id AS id`

	listingSetsByOwnerCypher = `
		MATCH (u:User {username: $owner})-[:OWNS]->(ls:ListingSet)
		RETURN ls
		ORDER BY ls.createdAt DESC`

	createUserCypher = `
		CREATE (u:User {
			username: $username,
			full_name: $full_name,
			password: $password,
			role: $role,
			is_active: $is_active
		})`

	getUserCypher = `MATCH (u:User {username: $username}) RETURN u`

	listUsersCypher = `MATCH (u:User) RETURN u ORDER BY u.username`
)
